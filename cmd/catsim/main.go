// Command catsim builds category and term indices over a labelled corpus and
// answers Jaccard similarity queries from the command line, over HTTP, or
// from a Kafka topic.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/cmd/catsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
