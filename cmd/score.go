package cmd

import (
	"github.com/spf13/cobra"

	"github.com/iguard-io/mlpipe/pkg/scorer"
)

var (
	inputData  string
	outputData string
	modelPath  string

	scoreCmd = &cobra.Command{
		Use:   "score",
		Short: "apply a trained model to CSV files, invoked by the platform as a pipeline step",
		Long:  "apply a trained model to CSV files, invoked by the platform as a pipeline step",
		RunE: func(cmd *cobra.Command, args []string) error {
			return scorer.Run(inputData, outputData, modelPath)
		},
	}
)

func init() {
	scoreCmd.Flags().StringVar(&inputData, "input_data", "", "input CSV file or directory")
	scoreCmd.Flags().StringVar(&outputData, "output_data", "", "output directory")
	scoreCmd.Flags().StringVar(&modelPath, "model_path", "", "path of the model artifact")
	_ = scoreCmd.MarkFlagRequired("input_data")
	_ = scoreCmd.MarkFlagRequired("output_data")
	_ = scoreCmd.MarkFlagRequired("model_path")
}
