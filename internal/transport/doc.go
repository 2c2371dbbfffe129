// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport sends chat messages to the Helia API and decodes the
// streamed reply.
//
// A send is one multipart POST to /api/chat/send carrying chat_id, message,
// and optionally model_id and image. The reply body is newline-delimited
// text; each line may carry a "data: " prefix, which is stripped. A data
// frame equal to END or an "event: end" line terminates the stream.
//
// # Usage
//
//	t := transport.New(transport.Options{BaseURL: url, Tokens: store})
//	stream, err := t.Open(ctx, transport.Request{SessionID: "42", Content: "Hello"})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    frag, err := stream.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err // *TransportError
//	    }
//	    fmt.Print(frag)
//	}
//
// A Stream is pulled lazily and cannot be restarted; every Open issues a
// new request.
package transport
