// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Package envloader carrega variáveis de ambiente em structs através das
// tags `env` e `envDefault`.
//
// É usado em dois pontos do mock server:
//
//   - Settings: configurações de processo lidas antes do YAML
//     (CONFIG_FILE_PATH, MOCK_RUNTIME, MOCK_HOT_RELOAD, MOCK_RELOAD_DEBOUNCE,
//     MOCK_LOG_LEVEL).
//   - Sobrescritas sobre seções já decodificadas do YAML, como o bloco
//     metrics.datadog (DD_ENABLED, DD_AGENT_HOST).
//
// Exemplo:
//
//	settings, err := envloader.LoadSettings()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if settings.IsLambda() {
//	    // atende eventos do API Gateway
//	}
//
// Tipos suportados: string, inteiros, bool, floats, time.Duration, []string
// (separado por vírgula) e structs aninhadas (inclusive ponteiros).
package envloader
