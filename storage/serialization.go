// Copyright 2025 Poiesic Systems
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


package storage

import (
	"fmt"

	"github.com/poiesic/distillery/core"
)

// MarshalDistillation serializes a Distillation to bytes.
func MarshalDistillation(d *core.Distillation) []byte {
	buf := make([]byte, core.DistillationMUS.Size(*d))
	core.DistillationMUS.Marshal(*d, buf)
	return buf
}

// UnmarshalDistillation deserializes a Distillation from bytes.
func UnmarshalDistillation(data []byte) (*core.Distillation, error) {
	d, _, err := core.DistillationMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &d, nil
}
