// Package app wires tether's components together.
//
// Bootstrapping happens in two steps:
//
//  1. NewApplication loads configuration, validates it and initialises logging.
//  2. InitializeServices opens the graph store and the instance directory and
//     builds the dependency service, the environment resolver and the
//     isolation engine on top of them. Optional collaborators (redis hostname
//     cache, NATS events) are only connected when configured.
//
// Example:
//
//	cfg := app.NewConfig(false, false, "/etc/tether")
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer application.Close()
//	svcs := application.Services()
//
// Services.Close releases everything that was opened, in reverse order.
package app
