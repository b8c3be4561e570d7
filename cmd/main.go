/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jerry-enebeli/passbook"
	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/database"
	"github.com/jerry-enebeli/passbook/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Passbook represents the CLI application, encapsulating the root Cobra command.
type Passbook struct {
	cmd *cobra.Command
}

// passbookInstance holds the service and configuration shared by every command.
type passbookInstance struct {
	passbook *passbook.Passbook
	cnf      *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and wires the service before any command runs.
func preRun(app *passbookInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newPassbook, err := setupPassbook(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.passbook = newPassbook
		app.cnf = cnf
		return nil
	}
}

// setupPassbook connects to the data source and creates the service.
func setupPassbook(cfg *config.Configuration) (*passbook.Passbook, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newPassbook, err := passbook.NewPassbook(db)
	if err != nil {
		return nil, fmt.Errorf("error creating passbook: %v", err)
	}
	return newPassbook, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// NewCLI creates the command-line interface for Passbook.
func NewCLI() *Passbook {
	var configFile string
	p := &passbookInstance{}

	var rootCmd = &cobra.Command{
		Use:          "passbook",
		Short:        "Bank statement ingestion into a personal ledger",
		SilenceUsage: true,
		Run:          func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./passbook.json", "Configuration file for passbook")
	rootCmd.PersistentPreRunE = preRun(p, &configFile)

	rootCmd.AddCommand(workerCommands(p))
	rootCmd.AddCommand(migrateCommands(p))
	rootCmd.AddCommand(configCommands(p))
	rootCmd.AddCommand(importCommands(p))
	rootCmd.AddCommand(jobCommands(p))
	rootCmd.AddCommand(rowCommands(p))
	rootCmd.AddCommand(commitCommands(p))
	rootCmd.AddCommand(accountCommands(p))
	rootCmd.AddCommand(categoryCommands(p))
	rootCmd.AddCommand(suggestCommands(p))
	rootCmd.AddCommand(transferCommands(p))

	return &Passbook{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Passbook) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
