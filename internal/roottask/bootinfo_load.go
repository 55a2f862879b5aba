package roottask

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/cohesix/ninedoor/internal/logger"
)

// bootInfoDoc is the on-disk JSON shape of BootInfo, produced by whatever
// host tooling stands in for the kernel on a non-hardware build (spec §6
// "Bootinfo record ... consumed from the kernel").
type bootInfoDoc struct {
	InitCNodeCap    uint64            `json:"init_cnode_cap"`
	InitCNodeBits   uint8             `json:"init_cnode_bits"`
	EmptySlotRegion SlotRegion        `json:"empty_slot_region"`
	UntypedRegion   SlotRegion        `json:"untyped_region"`
	UntypedList     []UntypedDesc     `json:"untyped_list"`
	IPCBufferPtr    uint64            `json:"ipc_buffer_ptr"`
	ExtraHeaders    map[string]string `json:"extra_headers,omitempty"` // values stored as their raw string bytes, e.g. "fdt"
}

// LoadBootInfoFile reads and decodes a boot record from path, the host-side
// stand-in for the kernel handing the root task its bootinfo frame.
func LoadBootInfoFile(path string) (BootInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BootInfo{}, fmt.Errorf("read bootinfo %s: %w", path, err)
	}
	var doc bootInfoDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return BootInfo{}, fmt.Errorf("parse bootinfo %s: %w", path, err)
	}

	headers := make(map[string][]byte, len(doc.ExtraHeaders))
	for k, v := range doc.ExtraHeaders {
		headers[k] = []byte(v)
	}

	return BootInfo{
		InitCNodeCap:    doc.InitCNodeCap,
		InitCNodeBits:   doc.InitCNodeBits,
		EmptySlotRegion: doc.EmptySlotRegion,
		UntypedRegion:   doc.UntypedRegion,
		UntypedList:     doc.UntypedList,
		IPCBufferPtr:    uintptr(doc.IPCBufferPtr),
		ExtraHeaders:    headers,
	}, nil
}

// WatchManifest watches path for changes and invokes onChange whenever the
// file is rewritten, the host-build analogue of rereading /proc/boot on a
// SIGHUP-equivalent (SPEC_FULL.md ambient stack: "root-task manifest
// hot-reload watch"). It runs until stop is closed.
func WatchManifest(path string, stop <-chan struct{}, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create manifest watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("manifest watch error", "path", path, "err", err)
			}
		}
	}()

	return nil
}
