// Package gorawrstash hosts a process-wide tiered cache behind a small gRPC
// admin surface.
//
// [NewServer] builds the [cache.Tiered] instance from functional options,
// registers the stash.Admin service (Ping, Stats, Invalidate, Clear) and
// exposes Prometheus metrics for it. Applications that only need the cache
// can use package cache directly; the server is for daemons such as
// cmd/stashd that share one cache with operators and dashboards.
//
//	opts, err := gorawrstash.FromEnv()
//	srv, err := gorawrstash.NewServer(append(gorawrstash.DefaultOptions(), opts...)...)
//	go srv.Serve(lis)
//	defer srv.Close()
package gorawrstash
