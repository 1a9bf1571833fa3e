// Command textctl runs the text analyzer from the command line.
//
// Usage:
//
//	textctl words --text "el gato y el perro" [--top 10]
//	textctl analyze --text "Hoy es un gran día"
//	textctl analyze --file notas.txt [--save]
//	textctl history [--limit 20]
//	textctl keygen
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	inputFlags := []cli.Flag{
		&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "text to analyze"},
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "UTF-8 .txt file to analyze"},
		&cli.StringFlag{Name: "format", Value: "yaml", Usage: "output format: yaml or json"},
	}

	return &cli.App{
		Name:  "textctl",
		Usage: "word frequencies, sentiment and tone of a text",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config file", EnvVars: []string{"TA_CONFIG"}},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		},
		Commands: []*cli.Command{
			{
				Name:   "words",
				Usage:  "rank the significant words of a text",
				Flags:  append([]cli.Flag{&cli.IntFlag{Name: "top", Value: 10, Usage: "number of words to show (0 for all)"}}, inputFlags...),
				Action: wordsAction,
			},
			{
				Name:   "analyze",
				Usage:  "translate, score and count words, then pick a tone message",
				Flags:  append([]cli.Flag{&cli.BoolFlag{Name: "save", Usage: "record the result in the history store"}}, inputFlags...),
				Action: analyzeAction,
			},
			{
				Name:  "history",
				Usage: "list recent analyses from the history store",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of records"},
					&cli.StringFlag{Name: "format", Value: "yaml", Usage: "output format: yaml or json"},
				},
				Action: historyAction,
			},
			{
				Name:   "keygen",
				Usage:  "generate an admin API key and the digest to put in admin.apiKeyHashes",
				Action: keygenAction,
			},
			{
				Name:   "stopwords",
				Usage:  "print the stop-word list",
				Action: stopwordsAction,
			},
		},
	}
}
