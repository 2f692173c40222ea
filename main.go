/*
main.go

Copyright © 2025 Code Monkey Cybersecurity
Contact: git@cybermonkey.net.au

This file is part of Hestia.

This software is dual-licensed under the Do No Harm License
and the GNU Affero General Public License v3 (AGPL-3.0-or-later).
You may use, modify, and distribute it under the terms of either license.

See LICENSE.agpl and LICENSE.dnh for full details.
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/hestia/cmd"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/telemetry"
)

func main() {
	if err := telemetry.Init("hestia"); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "⚠️  Telemetry disabled:", err)
	}

	code := cmd.Execute(os.Args[1:], os.Stdout, os.Stderr)

	if err := telemetry.Shutdown(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "⚠️  Failed to flush telemetry:", err)
	}
	os.Exit(code)
}
