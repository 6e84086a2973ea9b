package template

const (
	ToolCommentProjectToken = "$PROJECT$"
	ToolCommentSignature    = `<!-- vdiffchk: $PROJECT$ - auto-generated comment, please do not remove -->`
	FileNameSummaryTemplate = "summary.md.tmpl"
)
