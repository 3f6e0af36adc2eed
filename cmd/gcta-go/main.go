// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import gcta "github.com/statgen/mtcojo-go"

func main() {
	gcta.Main()
}
