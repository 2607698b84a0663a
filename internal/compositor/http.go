// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"net/http"

	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/httpext"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/osext"
)

var wrap *httpext.WrappedTransport

// SetupHTTPClient wraps http.DefaultTransport to identify ourselves in the
// User-Agent of outgoing requests (only the healthmonitor makes any).
func SetupHTTPClient() {
	wrap = httpext.WrapTransport(&http.DefaultTransport)
	wrap.SetInsecureSkipVerify(osext.GetenvBool("COMPOSITOR_INSECURE")) // for debugging with mitmproxy etc. (DO NOT SET IN PRODUCTION)
	wrap.SetOverrideUserAgent(bininfo.Component(), bininfo.VersionOr("rolling"))
}

// SetTaskName records which subcommand is running, for logs and the User-Agent.
func SetTaskName(taskName string) {
	bininfo.SetTaskName(taskName)
	if wrap != nil {
		wrap.SetOverrideUserAgent(bininfo.Component(), bininfo.VersionOr("rolling"))
	}
	logg.Info("starting %s %s", bininfo.Component(), bininfo.VersionOr("rolling"))
}
