// Package n3 is a Linux-only asynchronous network I/O runtime: a
// reactor goroutine that multiplexes many TCP/UDP descriptors over
// epoll (or, optionally, io_uring) and exposes connect/accept/send/
// receive operations that suspend their caller via a callback instead
// of blocking a thread.
//
// A typical server pairs one *reactor.Reactor with one goroutine
// running its Run loop:
//
//	r, err := reactor.New(nil)
//	ln, err := socket.ListenTCP(r, addr.NewV4(addr.V4{Port: 9000}), 128)
//	ln.Accept(func(res socket.AcceptResult, err error) { ... })
//	go r.Run()
//
// See n3/reactor, n3/socket, n3/ioqueue, and n3/nbuf for the pieces
// that make that up.
package n3
