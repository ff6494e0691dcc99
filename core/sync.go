package core

// Event bus topic names. The core only ever publishes/subscribes by
// these string constants; the event bus itself lives in pkg/eventbus.
const (
	TopicBlockReceive       = "BLOCK_RECEIVE"
	TopicBlockGenerate      = "BLOCK_GENERATE"
	TopicBlockchainReady    = "BLOCKCHAIN_READY"
	TopicNewBlocks          = "NEW_BLOCKS"
	TopicApplyBlock         = "APPLY_BLOCK"
	TopicUndoBlock          = "UNDO_BLOCK"
	TopicEmitSyncBlocks     = "EMIT_SYNC_BLOCKS"
	TopicTransactionReceive = "TRANSACTION_RECEIVE"
	TopicTransactionCreate  = "TRANSACTION_CREATE"
)

// SyncInterface (C8) is the peer-discovery/sync collaborator surface the
// block service and pool depend on. Only the interface is specified here;
// the real transport, peer discovery, and common-block negotiation are
// explicitly out of scope.
type SyncInterface interface {
	// Syncing reports whether the node is currently catching up with
	// peers. While true, newly received blocks are dropped rather than
	// queued for later replay.
	Syncing() bool

	// Broadcast relays payload to peers under topic. Implementations may
	// no-op for a single-node deployment.
	Broadcast(topic string, payload any) error

	// RequestCommonBlock asks peers for the most recent block id from ids
	// that is still part of their chain, used for fork recovery beyond
	// what this core handles locally.
	RequestCommonBlock(ids []Hash) (commonBlockID Hash, found bool, err error)

	// RequestBlocks asks peers for a run of blocks starting at fromHeight.
	RequestBlocks(fromHeight uint64, limit int) ([]*Block, error)
}

// FakeSync is an in-memory SyncInterface used by tests and single-node
// local runs. It reports itself as syncing only after SetSyncing(true) and
// records broadcasts for assertions.
type FakeSync struct {
	syncing     bool
	Broadcasts  []FakeBroadcast
}

// FakeBroadcast records one Broadcast call for test assertions.
type FakeBroadcast struct {
	Topic   string
	Payload any
}

func NewFakeSync() *FakeSync { return &FakeSync{} }

func (f *FakeSync) SetSyncing(v bool) { f.syncing = v }

func (f *FakeSync) Syncing() bool { return f.syncing }

func (f *FakeSync) Broadcast(topic string, payload any) error {
	f.Broadcasts = append(f.Broadcasts, FakeBroadcast{Topic: topic, Payload: payload})
	return nil
}

func (f *FakeSync) RequestCommonBlock(ids []Hash) (Hash, bool, error) {
	return Hash{}, false, nil
}

func (f *FakeSync) RequestBlocks(fromHeight uint64, limit int) ([]*Block, error) {
	return nil, nil
}
