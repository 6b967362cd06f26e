/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// ManifestSchema is the JSON schema of comic.json.
const ManifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "gocomicgrid manifest",
  "type": "object",
  "required": ["name", "pages"],
  "properties": {
    "name": {"type": "string"},
    "metadata": {"type": "object"},
    "pages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["number", "panels"],
        "properties": {
          "number": {"type": "integer", "minimum": 1},
          "panels": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "type", "position"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "type": {"type": "string", "enum": ["image", "video", "gif", "3d", "text"]},
                "url": {"type": "string"},
                "position": {
                  "type": "object",
                  "required": ["row", "col"],
                  "properties": {
                    "row": {"type": "integer", "minimum": 0},
                    "col": {"type": "integer", "minimum": 0},
                    "rowSpan": {"type": "integer", "minimum": 1},
                    "colSpan": {"type": "integer", "minimum": 1}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var manifestSchemaLoader = gojsonschema.NewStringLoader(ManifestSchema)

// ValidateManifest checks manifest bytes against ManifestSchema.
func ValidateManifest(data []byte) error {
	res, err := gojsonschema.Validate(manifestSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("manifest invalid: %s", strings.Join(msgs, "; "))
	}
	return nil
}
