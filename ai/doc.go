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


// Package ai defines the distillation boundary: the single capability that
// turns raw extracted text into a condensed knowledge artifact via an
// external model.
//
// The Distiller interface takes an explicit Config on every call instead of
// reading ambient provider state, which keeps the orchestrator deterministic
// given its inputs. Provider selection is a tagged variant: Config.Provider
// names one of a fixed set of implementations, resolved once by
// openai.NewDistiller; callers never branch on provider identity.
//
// Implementation packages:
//
//   - ai/openai: production distillers for OpenAI-compatible and Ollama
//     endpoints, both built on langchaingo
//   - ai/mock: test double with behavior injection and call counting
//
// Production constructors return the ai.Distiller interface to prevent
// coupling to a concrete provider; mock constructors return the concrete
// type so tests can reach CallCount and DistillFunc.
package ai
