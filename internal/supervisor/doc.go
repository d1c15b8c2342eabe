// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

/*
Package supervisor runs TierDrop's long-lived services under suture v4.

The tree has two layers for failure isolation:

	RootSupervisor ("tierdrop")
	├── EngineSupervisor ("engine-layer")
	│   ├── Poller (synchronization engine)
	│   ├── WebSocketHubService
	│   └── Forwarder (bus → hub bridge)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crash in the engine layer restarts the poller without dropping the
HTTP listener; the API keeps serving the last snapshot meanwhile. The
root supervisor logs service lifecycle events through sutureslog, fed
by the slog adapter in internal/logging.

Services either implement suture.Service directly (the poller, the
forwarder) or are adapted by a thin wrapper in the services subpackage
(the HTTP server's ListenAndServe, the hub's RunWithContext).
*/
package supervisor
