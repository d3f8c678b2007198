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

// Package command houses the subcommands of the relq binary.
package command

import (
	"github.com/spf13/cobra"

	"github.com/relq/relq/log"
	"github.com/relq/relq/rqerrors"
)

// Root is the main entry point of the relq binary.
var Root = &cobra.Command{
	Use:   "relq",
	Short: "relq inspects and rewrites serialized query plans.",
	Long: "relq feeds serialized plans through the join elimination stage of the query\n" +
		"compiler, so rewrites can be inspected without driving the whole compiler.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	Run:          func(cmd *cobra.Command, _ []string) { cmd.Help() },
}

func init() {
	log.RegisterFlags(Root.PersistentFlags())
	rqerrors.RegisterFlags(Root.PersistentFlags())
}
