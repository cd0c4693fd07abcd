// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is an in-memory chat backend for local runs and tests.
//
// It serves the messages query and the sendMessage and clearMessages
// mutations on POST /graphql, and the messageAdded subscription over
// graphql-transport-ws on GET /graphql. Every sendMessage stores the user
// message followed by the assistant reply from a Responder.
package devserver
