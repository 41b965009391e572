/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package randdata

import (
	"crypto/rand"
	"math/big"
)

const lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"

// MakeRandomString returns a random string of lowercase letters.
// Used for socket name suffixes so multiple bridge instances can coexist.
func MakeRandomString(length uint32) (string, error) {
	retval := make([]byte, length)

	for i := 0; i < int(length); i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(lowercaseLetters))))
		if err != nil {
			return "", err
		}
		retval[i] = lowercaseLetters[n.Int64()]
	}

	return string(retval), nil
}
