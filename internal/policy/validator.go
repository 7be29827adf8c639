// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package policy decides what SQL may run against a dataset and how much of its
// output a caller gets back. Validation parses the text with the PostgreSQL parser
// and only admits SELECT statements; classification and row capping work on the raw
// text so that a caller-supplied LIMIT is always honored as written.
package policy

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"panelq/cli/internal/errors"
)

// dangerousKeywords are rejected anywhere in the upper-cased text. The scan is
// lexical, so identifiers such as updated_at are rejected too.
var dangerousKeywords = []string{"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE", "TRUNCATE"}

// Validate returns sql unchanged when every statement is a plain SELECT and no
// denylisted keyword occurs in the text. Violations carry one of EmptyQuery,
// InvalidQuery, DisallowedStatement or DangerousKeyword.
func Validate(sql string) (string, error) {
	parsed, err := pg_query.Parse(sql)
	if err != nil {
		return "", errors.Wrap(errors.InvalidQuery, "parse SQL", err)
	}
	if len(parsed.Stmts) == 0 {
		return "", errors.New(errors.EmptyQuery, "query contains no statements")
	}
	for _, raw := range parsed.Stmts {
		if kind := StatementType(raw.Stmt); kind != "SELECT" {
			return "", errors.New(errors.DisallowedStatement,
				fmt.Sprintf("only SELECT queries are allowed, got %s", kind))
		}
	}

	upper := strings.ToUpper(sql)
	for _, kw := range dangerousKeywords {
		if strings.Contains(upper, kw) {
			return "", errors.New(errors.DangerousKeyword,
				fmt.Sprintf("query contains dangerous keyword: %s", kw))
		}
	}
	return sql, nil
}

// StatementType names the kind of a parsed statement the way a DBA would say it.
func StatementType(node *pg_query.Node) string {
	if node == nil {
		return "UNKNOWN"
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		if n.SelectStmt.GetIntoClause() != nil {
			return "SELECT INTO"
		}
		return "SELECT"
	case *pg_query.Node_InsertStmt:
		return "INSERT"
	case *pg_query.Node_UpdateStmt:
		return "UPDATE"
	case *pg_query.Node_DeleteStmt:
		return "DELETE"
	case *pg_query.Node_MergeStmt:
		return "MERGE"
	case *pg_query.Node_CopyStmt:
		return "COPY"
	case *pg_query.Node_ExplainStmt:
		return "EXPLAIN"
	case *pg_query.Node_TruncateStmt:
		return "TRUNCATE"
	case *pg_query.Node_DropStmt:
		return "DROP"
	case *pg_query.Node_CreateStmt, *pg_query.Node_CreateTableAsStmt, *pg_query.Node_IndexStmt,
		*pg_query.Node_ViewStmt, *pg_query.Node_CreateSchemaStmt, *pg_query.Node_CreateFunctionStmt,
		*pg_query.Node_CreateSeqStmt, *pg_query.Node_CreateExtensionStmt:
		return "CREATE"
	case *pg_query.Node_AlterTableStmt, *pg_query.Node_AlterSeqStmt, *pg_query.Node_AlterRoleStmt,
		*pg_query.Node_RenameStmt:
		return "ALTER"
	case *pg_query.Node_GrantStmt, *pg_query.Node_GrantRoleStmt:
		return "GRANT"
	case *pg_query.Node_TransactionStmt:
		return "TRANSACTION"
	case *pg_query.Node_VariableSetStmt:
		return "SET"
	case *pg_query.Node_VariableShowStmt:
		return "SHOW"
	case *pg_query.Node_CallStmt:
		return "CALL"
	case *pg_query.Node_DoStmt:
		return "DO"
	case *pg_query.Node_LockStmt:
		return "LOCK"
	case *pg_query.Node_VacuumStmt:
		return "VACUUM"
	default:
		return "UNKNOWN"
	}
}
