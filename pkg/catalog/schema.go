package catalog

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	summariesTable  = "summaries"
	watermarksTable = "watermarks"
	workspacesTable = "workspaces"
	rejectionsTable = "rejections"
)

var (
	summaryColumns = []*schema.Column{
		{Name: "session_id", Type: field.TypeString},
		{Name: "workspace_path", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "summary", Type: field.TypeString, Size: 2147483647},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	summariesSchema = &schema.Table{
		Name:       summariesTable,
		Columns:    summaryColumns,
		PrimaryKey: []*schema.Column{summaryColumns[0]},
		Indexes: []*schema.Index{
			{Name: "summaries_updated_at", Columns: []*schema.Column{summaryColumns[5]}},
		},
	}

	watermarkColumns = []*schema.Column{
		{Name: "session_id", Type: field.TypeString},
		{Name: "last_seq", Type: field.TypeInt64},
		{Name: "summary", Type: field.TypeString, Size: 2147483647},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	watermarksSchema = &schema.Table{
		Name:       watermarksTable,
		Columns:    watermarkColumns,
		PrimaryKey: []*schema.Column{watermarkColumns[0]},
	}

	workspaceColumns = []*schema.Column{
		{Name: "hash", Type: field.TypeString},
		{Name: "path", Type: field.TypeString},
	}
	workspacesSchema = &schema.Table{
		Name:       workspacesTable,
		Columns:    workspaceColumns,
		PrimaryKey: []*schema.Column{workspaceColumns[0]},
	}

	// rejections remembers the last message a not-actionable summary was
	// produced for, so unchanged small talk is not sent to the agent again.
	rejectionColumns = []*schema.Column{
		{Name: "session_id", Type: field.TypeString},
		{Name: "last_seq", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	rejectionsSchema = &schema.Table{
		Name:       rejectionsTable,
		Columns:    rejectionColumns,
		PrimaryKey: []*schema.Column{rejectionColumns[0]},
	}

	tables = []*schema.Table{summariesSchema, watermarksSchema, workspacesSchema, rejectionsSchema}
)
