package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configOutput string

// configCmd 输出最终生效的配置 (默认值 + 配置文件 + 环境变量)
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "显示生效的配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configOutput != "" {
			if err := appConfig.SaveToFile(configOutput); err != nil {
				return err
			}
			fmt.Printf("Config written to %s\n", configOutput)
			return nil
		}
		data, err := appConfig.Marshal()
		if err != nil {
			return err
		}
		if configFileUsed != "" {
			fmt.Printf("# loaded from %s\n", configFileUsed)
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringVarP(&configOutput, "output", "o", "", "写入到文件而不是标准输出")
}
