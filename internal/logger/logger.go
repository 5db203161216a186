// Copyright 2020 ConsenSys AG
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides a single, process-wide zerolog.Logger for the
// plonkify packages. It mirrors the With().Str(...).Logger() chaining
// convention used throughout gnark's internal backends.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggerLock sync.RWMutex
	rootLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
)

// Logger returns the root logger. Call With() on the result to attach
// component-specific fields, e.g. logger.Logger().With().Str("component", "vanilla").Logger().
func Logger() zerolog.Logger {
	loggerLock.RLock()
	defer loggerLock.RUnlock()
	return rootLogger
}

// Set replaces the root logger, e.g. to redirect output or change the
// minimum level from a CLI flag.
func Set(l zerolog.Logger) {
	loggerLock.Lock()
	defer loggerLock.Unlock()
	rootLogger = l
}
