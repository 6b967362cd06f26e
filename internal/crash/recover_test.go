/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocomicgrid/internal/storage"
)

// silenceStderr swaps os.Stderr for a pipe until the test ends and returns
// what was written to it.
func silenceStderr(t *testing.T) func() string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w
	var got string
	done := false
	restore := func() string {
		if !done {
			done = true
			_ = w.Close()
			os.Stderr = old
			b, _ := io.ReadAll(r)
			got = string(b)
		}
		return got
	}
	t.Cleanup(func() { restore() })
	return restore
}

func stubExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })
	return &code
}

func TestRecover_Panic(t *testing.T) {
	stderr := silenceStderr(t)
	code := stubExit(t)

	root := t.TempDir()
	ph := &storage.ProjectHandle{Root: root, ManifestPath: filepath.Join(root, storage.ManifestFileName)}
	func() {
		defer Recover(ph)
		panic(errors.New("reflow exploded"))
	}()

	if *code != 2 {
		t.Fatalf("exit code = %d, want 2", *code)
	}
	msg := stderr()
	if !strings.Contains(msg, "crash report was saved to") {
		t.Fatalf("stderr = %q", msg)
	}
	reports, _ := filepath.Glob(filepath.Join(root, storage.BackupsDirName, "crash-*.log"))
	if len(reports) != 1 {
		t.Fatalf("reports = %v", reports)
	}
	b, err := os.ReadFile(reports[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "Panic: reflow exploded") {
		t.Fatalf("report: %s", b)
	}
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	code := stubExit(t)
	func() {
		defer Recover(nil)
	}()
	if *code != -1 {
		t.Fatalf("exit called with %d without a panic", *code)
	}
}
