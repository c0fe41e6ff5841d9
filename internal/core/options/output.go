package options

// OutputOptions 结果导出参数
type OutputOptions struct {
	OutputJson string // --json
	OutputCsv  string // --csv
}

// HasFileOutput 是否需要导出文件
func (o *OutputOptions) HasFileOutput() bool {
	return o.OutputJson != "" || o.OutputCsv != ""
}
