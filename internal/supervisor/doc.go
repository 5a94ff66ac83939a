// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package supervisor provides process supervision for MovieSavanna using suture v4.

# Overview

Long-running services are organized into two layers:

	RootSupervisor ("moviesavanna")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── MaintenanceService (stale cache, attempt windows, sessions)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's failure decay and backoff.
Supervisor events are reported through sutureslog, bridged to zerolog by
logging.NewSlogLogger.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddMaintenanceService(services.NewMaintenanceService(cfg.Server.MaintenanceInterval, tasks...))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

See the services subpackage for the service wrappers.
*/
package supervisor
