// SPDX-License-Identifier: MPL-2.0

package main

import cmd "driftfs-cli/cmd/driftfs"

func main() {
	cmd.Execute()
}
