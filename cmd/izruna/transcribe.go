package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/izruna/engine/encoder"
	rerr "github.com/conduit-lang/izruna/engine/errors"
	"github.com/conduit-lang/izruna/engine/rules"
	"github.com/conduit-lang/izruna/internal/clean"
	"github.com/conduit-lang/izruna/internal/orchestrator"
)

var (
	transcribePhrase         bool
	transcribeEncoder        string
	transcribeSep            string
	transcribeRulesPath      string
	transcribeMetarulesPath  string
	transcribeExceptionsPath string
	transcribeDatasetPath    string
)

func init() {
	transcribeCmd.Flags().BoolVar(&transcribePhrase, "phrase", false, "transcribe each argument as a strict-alphabet phrase rather than a free word")
	transcribeCmd.Flags().StringVar(&transcribeEncoder, "encoder", "ipa", "output encoder: ipa, ipa-simplified, alphabetic, alphanumeric, alphanumeric-simplified, or raw")
	transcribeCmd.Flags().StringVar(&transcribeSep, "sep", "", "separator joining phoneme tokens within a word")
	transcribeCmd.Flags().StringVar(&transcribeRulesPath, "rules", "data/rules.xml", "path to the rule file")
	transcribeCmd.Flags().StringVar(&transcribeMetarulesPath, "metarules", "data/metas.xml", "path to the metarule file")
	transcribeCmd.Flags().StringVar(&transcribeExceptionsPath, "exceptions", "data/exceptions.db", "path to the exception file")
	transcribeCmd.Flags().StringVar(&transcribeDatasetPath, "dataset", "data/phonetic_converter_dataset.json", "path to the encoder dataset")
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [words...]",
	Short: "Transcribe one or more words or phrases",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)

		store, err := rules.LoadStore(transcribeRulesPath, transcribeMetarulesPath, transcribeExceptionsPath)
		if err != nil {
			red.Fprintf(os.Stderr, "failed to load rule store: %v\n", err)
			return err
		}

		o, err := buildOrchestrator(store, transcribeEncoder, transcribeDatasetPath)
		if err != nil {
			red.Fprintf(os.Stderr, "failed to build encoder: %v\n", err)
			return err
		}

		for _, arg := range args {
			word := clean.Text(arg)
			var result string
			var terr error
			if transcribePhrase {
				result, terr = o.TranscribePhrase(word, transcribeSep)
			} else {
				result, terr = o.Transcribe(word, transcribeSep)
			}

			if terr != nil {
				if rerr.SeverityOf(terr) == rerr.Warning {
					yellow.Printf("%s -> warning: %v\n", word, terr)
				} else {
					red.Printf("%s -> error: %v\n", word, terr)
				}
				continue
			}

			if hasUnknownGap(result, transcribeSep) {
				yellow.Printf("%s -> %s (contains unrecognized phoneme gaps)\n", word, result)
				continue
			}
			fmt.Printf("%s -> %s\n", word, result)
		}
		return nil
	},
}

// buildOrchestrator resolves the requested encoder name into a plain
// (non-caching) Orchestrator for one-shot CLI use; "raw" skips
// re-encoding entirely, matching the HTTP front-end's synthetic
// "raw" variant.
func buildOrchestrator(store *rules.Store, encoderName, datasetPath string) (*orchestrator.Orchestrator, error) {
	variants, err := encoder.LoadDataset(datasetPath)
	if err != nil {
		return nil, err
	}
	decoder := variants[encoder.VariantAlphabetic]

	if encoderName == "raw" || encoderName == "" {
		return orchestrator.New(store, decoder, nil), nil
	}

	target, ok := variants[encoder.Variant(encoderName)]
	if !ok {
		return nil, fmt.Errorf("unknown encoder %q", encoderName)
	}
	return orchestrator.New(store, decoder, target), nil
}

// hasUnknownGap reports a doubled separator, the observable symptom of
// the encoder's empty-base degrade-gracefully behavior (an unknown
// base token converts to "" while its modifiers survive).
func hasUnknownGap(result, sep string) bool {
	if sep == "" {
		return false
	}
	return strings.Contains(result, sep+sep)
}
