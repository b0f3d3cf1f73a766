package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemoai/mnemo-go-sdk/engine"
)

func chatCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation on stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			stack, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer stack.cleanup()

			thread := engine.NewThread()
			scanner := bufio.NewScanner(os.Stdin)
			ctx := cmd.Context()

			fmt.Println("mnemo ready. Ctrl-D to exit.")
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}

				out, err := stack.engine.Run(ctx, thread, question)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}

				// Risky tools suspend the run; keep asking until it finishes.
				for out.Type == engine.OutputConfirmation {
					fmt.Println(out.Prompt)
					// Only a literal "y" approves; anything else denies.
					approved := false
					if scanner.Scan() {
						approved = strings.TrimSpace(scanner.Text()) == "y"
					}

					out, err = stack.engine.Resume(ctx, thread, approved)
					if err != nil {
						fmt.Fprintf(os.Stderr, "error: %v\n", err)
						break
					}
				}
				if err != nil {
					continue
				}

				fmt.Println(out.Answer)
			}
		},
	}
}
