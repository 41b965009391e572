/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package rpc

import (
	"net"

	"github.com/go-logr/logr"
)

// Pipe returns a connected pair of channels for hosting both sides of the
// bridge in a single process (and for tests). The caller must run Serve on
// both channels.
func Pipe(log logr.Logger) (*Channel, *Channel) {
	c1, c2 := net.Pipe()
	return NewChannel(c1, log), NewChannel(c2, log)
}
