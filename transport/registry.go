package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"uk.ac.bris.cs/lockstep/orchestrator"
)

// Delay between registration attempts of a worker
const RetryInterval = time.Second

const maxAddrLength = 256

// Partition routing to remote workers, filled by worker registrations
// A partition is routed to the worker that announced it until that worker's
// registration connection drops
type Registry struct {
	mutex   sync.Mutex
	workers map[int]*WorkerClient
	changed chan struct{} // closed and replaced on every change
}

func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[int]*WorkerClient),
		changed: make(chan struct{}),
	}
}

func (registry *Registry) Worker(index int) (orchestrator.WorkerClient, error) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	worker, ok := registry.workers[index]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrNoWorker, index)
	}
	return worker, nil
}

// Number of partitions currently routed
func (registry *Registry) Count() int {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	return len(registry.workers)
}

// Wait until partitions 0..count-1 are all routed
func (registry *Registry) Wait(ctx context.Context, count int) error {
	for {
		registry.mutex.Lock()
		ready := true
		for index := 0; index != count; index++ {
			if _, ok := registry.workers[index]; !ok {
				ready = false
				break
			}
		}
		changed := registry.changed
		registry.mutex.Unlock()
		if ready {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Must be called with mutex held
func (registry *Registry) notify() {
	close(registry.changed)
	registry.changed = make(chan struct{})
}

func (registry *Registry) add(index int, worker *WorkerClient) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if old, ok := registry.workers[index]; ok {
		old.Close()
	}
	registry.workers[index] = worker
	registry.notify()
}

func (registry *Registry) remove(index int, worker *WorkerClient) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if registry.workers[index] == worker {
		delete(registry.workers, index)
		registry.notify()
	}
	worker.Close()
}

// Accept worker registrations until listener is closed
func (registry *Registry) Listen(listener net.Listener) error {
	log.Printf("Accepting workers on %s", listener.Addr())
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go registry.monitor(conn)
	}
}

// Route the announced partition to the worker and drop it once the connection closes
func (registry *Registry) monitor(conn net.Conn) {

	defer conn.Close()

	reader := bufio.NewReader(conn)
	index, addr, err := readAnnounce(reader)
	if err != nil {
		log.Printf("Registration from %s: %v", conn.RemoteAddr(), err)
		return
	}

	// Worker listening on all interfaces, reach it through the address it connected from
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		log.Printf("Registration from %s: %v", conn.RemoteAddr(), err)
		return
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		remote, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		addr = net.JoinHostPort(remote, port)
	}

	worker, err := DialWorker(addr)
	if err != nil {
		log.Printf("Dial worker %d at %s: %v", index, addr, err)
		return
	}
	registry.add(index, worker)
	log.Printf("Worker %d at %s registered", index, addr)

	// Blocking read on connection until connection is reset
	io.Copy(io.Discard, reader)

	registry.remove(index, worker)
	log.Printf("Worker %d at %s disconnected", index, addr)
}

func writeAnnounce(w io.Writer, index int, addr string) error {
	data := binary.AppendVarint(nil, int64(index))
	data = binary.AppendVarint(data, int64(len(addr)))
	data = append(data, addr...)
	_, err := w.Write(data)
	return err
}

func readAnnounce(r *bufio.Reader) (int, string, error) {
	index, err := binary.ReadVarint(r)
	if err != nil {
		return 0, "", err
	}
	length, err := binary.ReadVarint(r)
	if err != nil {
		return 0, "", err
	}
	if index < 0 || length <= 0 || length > maxAddrLength {
		return 0, "", errors.New("malformed announcement")
	}
	addr := make([]byte, length)
	if _, err := io.ReadFull(r, addr); err != nil {
		return 0, "", err
	}
	return int(index), string(addr), nil
}

// Keep partition index registered at the orchestrator's registration address,
// reconnecting whenever the connection drops, until ctx is cancelled
func Register(ctx context.Context, registry_addr string, index int, rpc_addr string) error {

	for {
		var conn net.Conn
		var err error
		for {
			log.Print("Registering worker to orchestrator")
			var dialer net.Dialer
			conn, err = dialer.DialContext(ctx, "tcp", registry_addr)
			if err == nil {
				err = writeAnnounce(conn, index, rpc_addr)
				if err == nil {
					log.Print("Worker registered")
					break
				}
				conn.Close()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(RetryInterval):
			}
		}

		// Close connection on cancel to release the blocking read
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		if tcp, ok := conn.(*net.TCPConn); ok {
			tcp.SetKeepAlive(true)
		}
		conn.Read(make([]byte, 1))
		stop()
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Print("Orchestrator disconnected")
	}
}
