package world

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/axolotl-mc/axolotl/server/world/chunk"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

func testLog() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// recordingProvider keeps stored columns in memory and counts calls. Stores
// can be made to fail to exercise persistence error paths.
type recordingProvider struct {
	mu     sync.Mutex
	cols   map[ChunkPos]*chunk.Chunk
	loads  int
	stores int
	fail   bool
	closed bool
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{cols: map[ChunkPos]*chunk.Chunk{}}
}

func (p *recordingProvider) Settings(*Settings) error     { return nil }
func (p *recordingProvider) SaveSettings(*Settings) error { return nil }
func (p *recordingProvider) LoadColumn(pos ChunkPos, _ chunk.Range) (*chunk.Chunk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	c, ok := p.cols[pos]
	if !ok {
		return nil, ErrColumnNotFound
	}
	return c.Clone(), nil
}
func (p *recordingProvider) StoreColumn(pos ChunkPos, c *chunk.Chunk) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("store failed")
	}
	p.stores++
	p.cols[pos] = c
	return nil
}
func (p *recordingProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingProvider) storeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stores
}

func (p *recordingProvider) setFail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = fail
}

func (p *recordingProvider) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// countingGenerator counts GenerateChunk calls and fills a marker block.
type countingGenerator struct {
	mu    sync.Mutex
	calls map[ChunkPos]int
}

func newCountingGenerator() *countingGenerator {
	return &countingGenerator{calls: map[ChunkPos]int{}}
}

func (g *countingGenerator) GenerateChunk(pos ChunkPos, c *chunk.Chunk) {
	g.mu.Lock()
	g.calls[pos]++
	g.mu.Unlock()
	_ = c.SetBlock(0, 0, 0, 7)
}

func (g *countingGenerator) count(pos ChunkPos) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[pos]
}

func testWorld(t *testing.T, conf Config) *World {
	t.Helper()
	if conf.Log == nil {
		conf.Log = testLog()
	}
	if conf.MaintenanceInterval == 0 {
		// Keep the background loop out of the way; tests drive
		// HandleUpdates themselves.
		conf.MaintenanceInterval = time.Hour
	}
	w := conf.New()
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestQueueLoadMaterialisesOnce(t *testing.T) {
	gen := newCountingGenerator()
	w := testWorld(t, Config{Generator: gen})
	pos := ChunkPos{3, -2}

	for range 5 {
		w.Chunks().QueueLoad(pos)
	}
	if _, ok := w.Chunks().Chunk(pos); ok {
		t.Fatalf("chunk resident before HandleUpdates")
	}
	if n := w.Chunks().HandleUpdates(); n != 5 {
		t.Fatalf("handled %v updates, expected 5", n)
	}
	if _, ok := w.Chunks().Chunk(pos); !ok {
		t.Fatalf("chunk not resident after HandleUpdates")
	}
	if c := gen.count(pos); c != 1 {
		t.Fatalf("chunk generated %v times, expected once", c)
	}
}

func TestSetBlockRequireLoaded(t *testing.T) {
	w := testWorld(t, Config{})
	pos := BlockPos{20, 30, 40}

	if w.SetBlock(pos, 9, true) {
		t.Fatalf("SetBlock on non-resident chunk reported success with requireLoaded")
	}
	if n := w.Chunks().HandleUpdates(); n != 0 {
		t.Fatalf("requireLoaded write queued %v updates", n)
	}

	w.Chunks().QueueLoad(chunkPosFromBlockPos(pos))
	w.Chunks().HandleUpdates()
	if !w.SetBlock(pos, 9, true) {
		t.Fatalf("SetBlock on resident chunk failed")
	}
	if rid, ok := w.Block(pos); !ok || rid != 9 {
		t.Fatalf("read back %v, %v after SetBlock", rid, ok)
	}
}

func TestSetBlockQueuesLoadWithEdit(t *testing.T) {
	w := testWorld(t, Config{})
	pos := BlockPos{-5, 64, 17}

	if !w.SetBlock(pos, 12, false) {
		t.Fatalf("SetBlock without requireLoaded failed")
	}
	if _, ok := w.Block(pos); ok {
		t.Fatalf("block readable before HandleUpdates")
	}
	w.Chunks().HandleUpdates()
	if rid, ok := w.Block(pos); !ok || rid != 12 {
		t.Fatalf("read back %v, %v after queued load", rid, ok)
	}
}

func TestSetBlocksDropsBatchForNonResident(t *testing.T) {
	w := testWorld(t, Config{})
	pos := ChunkPos{0, 0}
	edits := []BlockEdit{
		{Pos: BlockPos{1, 10, 1}, State: 3},
		{Pos: BlockPos{2, 10, 2}, State: 4},
	}
	if w.Chunks().SetBlocks(pos, edits) {
		t.Fatalf("batch against non-resident chunk reported success")
	}
	w.Chunks().HandleUpdates()
	if _, ok := w.Block(BlockPos{1, 10, 1}); ok {
		t.Fatalf("dropped batch still applied an edit")
	}

	w.Chunks().QueueLoad(pos)
	w.Chunks().HandleUpdates()
	if !w.Chunks().SetBlocks(pos, edits) {
		t.Fatalf("batch against resident chunk failed")
	}
	if rid, _ := w.Block(BlockPos{2, 10, 2}); rid != 4 {
		t.Fatalf("read back %v after batch", rid)
	}
}

func TestUnloadPersistsModified(t *testing.T) {
	prov := newRecordingProvider()
	w := testWorld(t, Config{Provider: prov})
	pos := ChunkPos{1, 1}

	w.Chunks().QueueLoad(pos)
	w.Chunks().HandleUpdates()
	w.SetBlock(BlockPos{16, 5, 16}, 6, true)

	w.Chunks().QueueUnload(pos)
	w.Chunks().HandleUpdates()
	if _, ok := w.Chunks().Chunk(pos); ok {
		t.Fatalf("chunk still resident after unload")
	}
	if prov.storeCount() != 1 {
		t.Fatalf("provider stored %v columns, expected 1", prov.storeCount())
	}

	// Reloading must read back the persisted edit rather than regenerate.
	w.Chunks().QueueLoad(pos)
	w.Chunks().HandleUpdates()
	if rid, ok := w.Block(BlockPos{16, 5, 16}); !ok || rid != 6 {
		t.Fatalf("read back %v, %v after reload", rid, ok)
	}
}

func TestUnloadSkippedForTicketedChunk(t *testing.T) {
	w := testWorld(t, Config{})
	pos := ChunkPos{2, 2}
	viewer := uuid.New()

	w.Chunks().QueueLoad(pos)
	w.Chunks().HandleUpdates()
	w.Tickets().AddTicket(viewer, pos)

	w.Chunks().QueueUnload(pos)
	w.Chunks().HandleUpdates()
	if _, ok := w.Chunks().Chunk(pos); !ok {
		t.Fatalf("ticketed chunk was unloaded")
	}

	w.Tickets().RemoveTicket(viewer, pos)
	w.Chunks().QueueUnload(pos)
	w.Chunks().HandleUpdates()
	if _, ok := w.Chunks().Chunk(pos); ok {
		t.Fatalf("abandoned chunk stayed resident after unload")
	}
}

func TestUnloadableAfterTicketRelease(t *testing.T) {
	w := testWorld(t, Config{})
	pos := ChunkPos{4, -4}
	viewer := uuid.New()

	w.Tickets().AddTicket(viewer, pos)
	w.Chunks().QueueLoad(pos)
	w.Chunks().HandleUpdates()

	for p := range w.Tickets().Unloadable() {
		if p == pos {
			t.Fatalf("ticketed chunk yielded as unloadable")
		}
	}
	w.Tickets().RemoveTicket(viewer, pos)
	found := false
	for p := range w.Tickets().Unloadable() {
		if p == pos {
			found = true
		}
	}
	if !found {
		t.Fatalf("abandoned chunk not yielded as unloadable")
	}
}

func TestSectionKeyLayout(t *testing.T) {
	// chunk (1, -1), y = 5: 1<<42 | 0x3FFFFF<<20 | 5.
	if key := SectionKey(ChunkPos{1, -1}, 5); key != 8796091973637 {
		t.Fatalf("SectionKey = %v", key)
	}
	if rec := PackRecord(2, 3, 5, 7); rec != 2<<12|3<<8|7<<4|5 {
		t.Fatalf("PackRecord = %#x", rec)
	}
	// Negative coordinates pack into the field width in two's complement.
	key := SectionKey(ChunkPos{-1, -1}, -16)
	if cx := key >> 42 & 0x3FFFFF; cx != 0x3FFFFF {
		t.Fatalf("negative chunk x packed as %#x", cx)
	}
	if y := key & 0xFFFFF; y != 0xFFFF0 {
		t.Fatalf("negative y packed as %#x", y)
	}
}

func TestBroadcastFanOut(t *testing.T) {
	w := testWorld(t, Config{})
	pos := ChunkPos{0, 0}

	interested := NewChannelViewer()
	other := NewChannelViewer()
	w.AddViewer(interested)
	w.AddViewer(other)
	w.Tickets().AddTicket(interested.UUID(), pos)

	w.Chunks().QueueLoad(pos)
	w.Chunks().HandleUpdates()
	w.SetBlock(BlockPos{1, 2, 3}, 8, true)

	u, ok := interested.Next()
	if !ok {
		t.Fatalf("interested viewer received nothing")
	}
	bu, ok := u.(BlockUpdate)
	if !ok || bu.State != 8 || bu.Pos != (BlockPos{1, 2, 3}) {
		t.Fatalf("interested viewer received %#v", u)
	}
	if _, ok := other.Next(); ok {
		t.Fatalf("viewer without a ticket received an update")
	}
}

func TestBroadcastSkipsClosedViewer(t *testing.T) {
	w := testWorld(t, Config{})
	pos := ChunkPos{0, 0}

	closed := NewChannelViewer()
	open := NewChannelViewer()
	w.AddViewer(closed)
	w.AddViewer(open)
	w.Tickets().AddTicket(closed.UUID(), pos)
	w.Tickets().AddTicket(open.UUID(), pos)
	closed.Close()

	w.Chunks().QueueLoad(pos)
	w.Chunks().HandleUpdates()
	edits := []BlockEdit{
		{Pos: BlockPos{0, 4, 0}, State: 5},
		{Pos: BlockPos{0, 20, 0}, State: 5},
	}
	if !w.Chunks().SetBlocks(pos, edits) {
		t.Fatalf("batch failed")
	}

	u, ok := open.Next()
	if !ok {
		t.Fatalf("open viewer received nothing")
	}
	su, ok := u.([]SectionUpdate)
	if !ok || len(su) != 2 {
		t.Fatalf("open viewer received %#v", u)
	}
	if su[0].Key == su[1].Key {
		t.Fatalf("edits in different sections share a key")
	}
	if _, ok := closed.Next(); ok {
		t.Fatalf("closed viewer received an update")
	}
}

func TestChannelViewerClosed(t *testing.T) {
	v := NewChannelViewer()
	if err := v.ViewBlockUpdate(BlockUpdate{}); err != nil {
		t.Fatalf("send to open viewer: %v", err)
	}
	v.Close()
	if err := v.ViewBlockUpdate(BlockUpdate{}); !errors.Is(err, ErrViewerClosed) {
		t.Fatalf("send to closed viewer: %v", err)
	}
	// The update queued before the close stays readable.
	if _, ok := v.Next(); !ok {
		t.Fatalf("queued update lost on close")
	}
}

func TestLoaderMove(t *testing.T) {
	w := testWorld(t, Config{})
	viewer := uuid.New()
	l := NewLoader(w, viewer, 1)

	l.Move(mgl64.Vec3{8, 64, 8})
	w.Chunks().HandleUpdates()
	if n := w.Chunks().Len(); n != 9 {
		t.Fatalf("%v chunks resident after first move, expected 9", n)
	}
	if !w.Tickets().HasTickets(ChunkPos{0, 0}) {
		t.Fatalf("centre chunk holds no ticket")
	}

	// Moving one chunk east sheds the western column and gains an eastern
	// one.
	l.Move(mgl64.Vec3{24, 64, 8})
	if w.Tickets().HasTickets(ChunkPos{-1, 0}) {
		t.Fatalf("ticket on chunk that left the square")
	}
	if !w.Tickets().HasTickets(ChunkPos{2, 0}) {
		t.Fatalf("no ticket on chunk that entered the square")
	}

	l.Close()
	if w.Tickets().HasTickets(ChunkPos{1, 0}) {
		t.Fatalf("ticket survives loader close")
	}
}

func TestMaintenanceUnloadsAbandoned(t *testing.T) {
	prov := newRecordingProvider()
	w := testWorld(t, Config{Provider: prov})
	pos := ChunkPos{7, 7}

	w.Chunks().QueueLoad(pos)
	w.Chunks().HandleUpdates()
	w.SetBlock(BlockPos{7*16 + 1, 9, 7*16 + 1}, 3, true)

	w.maintenancePass()
	if _, ok := w.Chunks().Chunk(pos); ok {
		t.Fatalf("abandoned chunk resident after maintenance pass")
	}
	if prov.storeCount() != 1 {
		t.Fatalf("maintenance stored %v columns, expected 1", prov.storeCount())
	}
}

func TestConcurrentQueueing(t *testing.T) {
	w := testWorld(t, Config{})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 64 {
				w.Chunks().QueueLoad(ChunkPos{int32(i), int32(j % 4)})
			}
		}()
	}
	wg.Wait()
	w.Chunks().HandleUpdates()
	if n := w.Chunks().Len(); n != 32 {
		t.Fatalf("%v chunks resident, expected 32", n)
	}
}

func TestSaveAllStoresOnlyModified(t *testing.T) {
	prov := newRecordingProvider()
	w := testWorld(t, Config{Provider: prov})

	// Freshly generated chunks count as modified until the first save.
	w.Chunks().QueueLoad(ChunkPos{0, 0})
	w.Chunks().QueueLoad(ChunkPos{1, 0})
	w.Chunks().HandleUpdates()
	if err := w.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if prov.storeCount() != 2 {
		t.Fatalf("save stored %v columns, expected 2", prov.storeCount())
	}

	// A second save with no further edits stores nothing.
	if err := w.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if prov.storeCount() != 2 {
		t.Fatalf("clean save stored columns")
	}

	// An edit dirties exactly its own column.
	w.SetBlock(BlockPos{1, 1, 1}, 2, true)
	if err := w.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if prov.storeCount() != 3 {
		t.Fatalf("save stored %v columns, expected only the edited one on top", prov.storeCount())
	}
}

func TestSaveAllRetriesAfterFailure(t *testing.T) {
	prov := newRecordingProvider()
	w := testWorld(t, Config{Provider: prov})

	w.Chunks().QueueLoad(ChunkPos{0, 0})
	w.Chunks().QueueLoad(ChunkPos{1, 0})
	w.Chunks().HandleUpdates()

	prov.setFail(true)
	if err := w.Chunks().SaveAll(); err == nil {
		t.Fatalf("save succeeded with a failing provider")
	}
	if prov.storeCount() != 0 {
		t.Fatalf("failed save recorded %v stores", prov.storeCount())
	}

	// The failed save must leave the columns dirty so that the next save
	// picks them up again.
	prov.setFail(false)
	if err := w.Chunks().SaveAll(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if prov.storeCount() != 2 {
		t.Fatalf("retried save stored %v columns, expected 2", prov.storeCount())
	}
}

func TestCloseClosesProviderAfterSaveFailure(t *testing.T) {
	prov := newRecordingProvider()
	w := Config{Log: testLog(), Provider: prov, MaintenanceInterval: time.Hour}.New()

	w.Chunks().QueueLoad(ChunkPos{0, 0})
	w.Chunks().HandleUpdates()

	prov.setFail(true)
	if err := w.Close(); err == nil {
		t.Fatalf("close swallowed the save failure")
	}
	if !prov.isClosed() {
		t.Fatalf("provider left open after failed close")
	}
}

func TestSetBlocksRejectsBatchWithOutOfBoundsEdit(t *testing.T) {
	w := testWorld(t, Config{})
	pos := ChunkPos{0, 0}
	w.Chunks().QueueLoad(pos)
	w.Chunks().HandleUpdates()

	v := NewChannelViewer()
	w.AddViewer(v)
	w.Tickets().AddTicket(v.UUID(), pos)

	edits := []BlockEdit{
		{Pos: BlockPos{1, 10, 1}, State: 3},
		{Pos: BlockPos{2, 1000, 2}, State: 4},
	}
	if w.Chunks().SetBlocks(pos, edits) {
		t.Fatalf("batch with out-of-range edit accepted")
	}
	// No edit from the rejected batch may stick, including the in-range one.
	if rid, ok := w.Block(BlockPos{1, 10, 1}); !ok || rid != 0 {
		t.Fatalf("rejected batch partially applied: got state %v", rid)
	}
	if _, ok := v.Next(); ok {
		t.Fatalf("broadcast sent for a rejected batch")
	}
}
