// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	log "github.com/sirupsen/logrus"
)

// Logger is the package-wide handle, configured once by Main() in
// cmd.go the same way the teacher configures logrus' standard logger:
// timestamps are suppressed when stderr is not a terminal.
var Logger = log.StandardLogger()
