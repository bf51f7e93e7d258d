// sentinel — layered threat-assessment engine.
// Scores actions across independent layers, classifies the combined
// risk, enforces a decision, and records the evidence in an append-only
// ledger.
package main

import "github.com/ppiankov/sentinel/internal/cli"

func main() {
	cli.Execute()
}
