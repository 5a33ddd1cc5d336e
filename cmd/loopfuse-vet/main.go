// SPDX-License-Identifier: Apache-2.0

// Command loopfuse-vet reports adjacent counted loops that can be fused.
//
// Usage:
//
//	loopfuse-vet ./...
//
// Or as a vet tool:
//
//	go vet -vettool=$(which loopfuse-vet) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"loopfuse/analyzer"
)

func main() {
	singlechecker.Main(analyzer.Analyzer)
}
