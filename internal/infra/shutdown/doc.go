// Package shutdown runs cleanup hooks once when the CLI exits.
//
// Hooks run in reverse registration order, either when the process
// receives SIGINT or SIGTERM or when the command returns normally:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnClose(store.Close)
//	ctx, stop := h.NotifyContext(context.Background())
//	defer stop()
//	defer h.Shutdown()
package shutdown
