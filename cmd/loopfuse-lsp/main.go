// SPDX-License-Identifier: Apache-2.0

// Command loopfuse-lsp is a language server for .lir files. It speaks LSP
// over standard input and output.
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"loopfuse/internal/lsp"
)

const lsName = "loopfuse"

var handler protocol.Handler

func main() {
	// 1 = debug level, nil = log to stderr
	commonlog.Configure(1, nil)

	h := lsp.NewHandler()

	handler = protocol.Handler{
		Initialize:                     h.Initialize,
		Initialized:                    h.Initialized,
		Shutdown:                       h.Shutdown,
		SetTrace:                       h.SetTrace,
		TextDocumentDidOpen:            h.TextDocumentDidOpen,
		TextDocumentDidClose:           h.TextDocumentDidClose,
		TextDocumentDidChange:          h.TextDocumentDidChange,
		TextDocumentCompletion:         h.TextDocumentCompletion,
		TextDocumentFormatting:         h.TextDocumentFormatting,
		TextDocumentSemanticTokensFull: h.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting loopfuse LSP server...")

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting loopfuse LSP server:", err)
		os.Exit(1)
	}
}
