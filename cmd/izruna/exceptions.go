package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/izruna/engine/rules"
)

var (
	exceptionsRulesPath      string
	exceptionsMetarulesPath  string
	exceptionsExceptionsPath string
)

func init() {
	exceptionsAddCmd.Flags().StringVar(&exceptionsRulesPath, "rules", "data/rules.xml", "path to the rule file, used only to validate the transcription's charset")
	exceptionsAddCmd.Flags().StringVar(&exceptionsMetarulesPath, "metarules", "data/metas.xml", "path to the metarule file")
	exceptionsAddCmd.Flags().StringVar(&exceptionsExceptionsPath, "exceptions", "data/exceptions.db", "path to the exception file to append to")
	exceptionsCmd.AddCommand(exceptionsAddCmd)
}

var exceptionsCmd = &cobra.Command{
	Use:   "exceptions",
	Short: "Manage the file-loaded exception dictionary",
}

var exceptionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Interactively add a word to the exception dictionary",
	RunE: func(cmd *cobra.Command, args []string) error {
		red := color.New(color.FgRed)

		store, err := rules.LoadStore(exceptionsRulesPath, exceptionsMetarulesPath, exceptionsExceptionsPath)
		if err != nil {
			red.Fprintf(os.Stderr, "failed to load rule store: %v\n", err)
			return err
		}

		var word string
		if err := survey.AskOne(&survey.Input{Message: "Orthographic word:"}, &word, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		word = strings.TrimSpace(word)

		var transcription string
		prompt := &survey.Input{Message: "Engine-alphabet transcription (tokens separated by _):"}
		if err := survey.AskOne(prompt, &transcription, survey.WithValidator(survey.Required), survey.WithValidator(charsetValidator(store))); err != nil {
			return err
		}
		transcription = strings.TrimSpace(transcription)

		f, err := os.OpenFile(exceptionsExceptionsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			red.Fprintf(os.Stderr, "failed to open exception file: %v\n", err)
			return err
		}
		defer f.Close()

		if _, err := fmt.Fprintf(f, "%s\t%s\n", word, transcription); err != nil {
			red.Fprintf(os.Stderr, "failed to write exception: %v\n", err)
			return err
		}

		fmt.Printf("Added exception: %s -> %s\n", word, transcription)
		return nil
	},
}

// charsetValidator rejects a transcription containing characters
// outside the active rule charset (plus the token separator), the
// same check the admin HTTP endpoint performs before persisting an
// override.
func charsetValidator(store *rules.Store) survey.Validator {
	allowed := make(map[rune]struct{})
	for _, r := range store.RuleCharset() + "_" {
		allowed[r] = struct{}{}
	}
	return func(val interface{}) error {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("expected a string")
		}
		for _, r := range s {
			if _, ok := allowed[r]; !ok {
				return fmt.Errorf("character %q is outside the rule charset", r)
			}
		}
		return nil
	}
}
