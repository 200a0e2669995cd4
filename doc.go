// Package fastmockserver é um servidor de mocks HTTP configurado por YAML,
// pensado para pipelines de CI/CD e testes de carga.
//
// Visão Geral:
// Cada endpoint declara método, path (com parâmetros ":nome") e uma lista
// ordenada de respostas. Para cada requisição o servidor escolhe uma resposta
// por condição, peso ou contador por cliente, aplica um delay opcional e
// renderiza corpo e headers a partir de templates.
//
// Sub-Pacotes Principais:
//
// 1. pkg/rules:
//   - Linguagem de condições mínima (==, !=, >, <, >=, <=, &&, ||).
//   - Expressões compiladas uma única vez e avaliadas sem erro.
//
// 2. pkg/router e pkg/responder:
//   - Roteamento por segmentos com desempate por especificidade.
//   - Templates "{{nome}}" com variáveis embutidas (uuid, timestamp, query.X,
//     header.X, body.X).
//
// 3. pkg/state:
//   - Contadores por (cliente, endpoint) com shards e expiração por TTL.
//
// 4. pkg/engine:
//   - Carregamento da configuração (arquivo, S3, DynamoDB, Redis).
//   - RuleSet imutável publicado por troca atômica e hot reload com debounce.
//
// 5. pkg/transport:
//   - Servidor HTTP (gorilla/mux), adaptador Lambda e fontes de
//     notificação de reload (arquivo, SQS, Redis pub/sub).
//
// Exemplo de configuração:
//
//	endpoints:
//	  - name: retry
//	    method: GET
//	    path: /retry
//	    stateful: true
//	    responses:
//	      - status: 200
//	        condition: "request_count > 2"
//	        body: "OK"
//	      - status: 503
//	        default: true
//	        body: "Service Unavailable"
//
// As três primeiras requisições de um mesmo cliente recebem 503 e a quarta
// recebe 200.
package fastmockserver
