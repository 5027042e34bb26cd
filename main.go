// SPDX-License-Identifier: AGPL-3.0-or-later
// ZelloFNEGateway - Bridge a Zello PTT channel to a P25/DMR FNE peer
// Copyright (C) 2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/USA-RedDragon/ZelloFNEGateway>

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/USA-RedDragon/ZelloFNEGateway/cmd"
	"github.com/USA-RedDragon/ZelloFNEGateway/internal/config"
	"github.com/USA-RedDragon/configulator"
)

// version and commit are set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := cmd.NewCommand(version, commit)

	c := configulator.New[config.Config]()
	ctx := configulator.NewContext(context.Background(), c)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
