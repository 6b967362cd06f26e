/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_OptOutSendsNothing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	off := New(Config{EventsURL: srv.URL, CrashURL: srv.URL, Timeout: time.Second})
	defer off.Close()
	if off.Enabled() {
		t.Fatal("client without opt-in must be disabled")
	}
	off.Event(EventGridGrown, map[string]any{"minCells": 6})
	off.UploadCrash([]byte("report"))

	// opted in, but an unnamed event is dropped
	on := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer on.Close()
	on.Event("", map[string]any{"panels": 1})
	on.Flush(context.Background())

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestClient_NilIsSafe(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Fatal("nil client reports enabled")
	}
	c.Event(EventReflowUnconverged, nil)
	c.UploadCrash([]byte("x"))
}

func TestClient_UnreachableEndpoint(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()

	c.Event(EventReflowUnconverged, map[string]any{"passes": 16})
	c.UploadCrash([]byte("boom"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	c.Flush(ctx)
	if time.Since(start) > 400*time.Millisecond {
		t.Fatal("Flush ignored a cancelled context")
	}
}
