// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the client for the remote GraphQL message store.
//
// It issues three operations (messages, sendMessage, clearMessages) and
// maintains live streams of the message list. The store never patches a
// list locally: every successful mutation makes each live stream fetch the
// full list again.
//
// Every remote failure matches ErrRemoteOperation:
//
//	if errors.Is(err, store.ErrRemoteOperation) {
//	    // restore draft, log, move on
//	}
package store
