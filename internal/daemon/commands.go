/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package daemon

import (
	"github.com/spf13/cobra"

	"github.com/microsoft/debugbridge/pkg/logger"
)

// NewRootCommand builds the debugbridged command tree.
func NewRootCommand(log *logger.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "debugbridged",
		Short:         "Debug adapter bridge daemon",
		Long:          "Bridges debug-session lifecycle and traffic between debug-adapter contributions and a debugging host.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	log.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCommand(log))
	return rootCmd
}

func newServeCommand(log *logger.Logger) *cobra.Command {
	var socketDir string
	var controlSocket string
	var manifestPaths []string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge and wait for a debugging host to connect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, newErr := New(Config{
				SocketDir:     socketDir,
				ControlSocket: controlSocket,
				ManifestPaths: manifestPaths,
				Logger:        log.Logger,
			})
			if newErr != nil {
				return newErr
			}

			return d.Run(cmd.Context())
		},
	}

	serveCmd.Flags().StringVar(&socketDir, "socket-dir", "",
		"Directory for control and session sockets (default: fresh directory under the system temp dir)")
	serveCmd.Flags().StringVar(&controlSocket, "control-socket", "",
		"Control socket path (default: control.sock inside the socket directory)")
	serveCmd.Flags().StringArrayVar(&manifestPaths, "contribution", nil,
		"Contribution manifest file to register; may be repeated")

	return serveCmd
}
