/*
Copyright 2026 The Relq Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// relq is a command line workbench for the plan rewriter. It feeds
// serialized plans through the optimizer stages and prints what changed.
package main

import (
	goflag "flag"
	"os"

	"github.com/relq/relq/cmd/relq/command"
	"github.com/relq/relq/log"
)

func main() {
	// Pick up the flags packages registered on the standard flag set,
	// glog's among them.
	command.Root.PersistentFlags().AddGoFlagSet(goflag.CommandLine)

	err := command.Root.Execute()
	log.Flush()
	if err != nil {
		os.Exit(1)
	}
}
