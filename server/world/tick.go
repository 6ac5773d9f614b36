package world

import "time"

// maintain runs the maintenance loop of the world until Close is called. Each
// pass queues an unload for every chunk with an empty interest set and drains
// the update queue. The loop is the only routine calling HandleUpdates on a
// timer, but external callers may still drain the queue between passes.
func (w *World) maintain(interval time.Duration) {
	defer close(w.closed)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-w.closing:
			return
		case <-t.C:
			w.maintenancePass()
		}
	}
}

// maintenancePass performs a single maintenance sweep.
func (w *World) maintenancePass() {
	if backlog := w.chunks.QueueLen(); backlog > maintenanceBacklogWarn {
		w.log.Warn("update queue backlog", "pending", backlog)
	}
	for pos := range w.tickets.Unloadable() {
		w.chunks.QueueUnload(pos)
	}
	w.chunks.HandleUpdates()
}

// maintenanceBacklogWarn is the queue length above which a maintenance pass
// logs a warning: the consumer is falling behind the producers.
const maintenanceBacklogWarn = 4096
