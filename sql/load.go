package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed fragments.sql
var fragmentsSQL string

//go:embed facts.sql
var factsSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relations.sql
var relationsSQL string

//go:embed records.sql
var recordsSQL string

// Function lists for verification
var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document",
	"select_document_by_rid",
	"delete_document",
}

var FragmentsFunctions = []string{
	"init_fragments",
	"insert_fragment",
	"select_fragment",
	"search_fragments",
	"delete_fragment",
}

var FactsFunctions = []string{
	"init_facts",
	"insert_fact",
	"find_facts",
	"delete_fact",
}

var EntitiesFunctions = []string{
	"init_entities",
	"insert_entity",
	"select_entity",
	"resolve_entities",
	"delete_entity",
}

var RelationsFunctions = []string{
	"init_relations",
	"insert_relation",
	"select_relations_from_entity",
	"delete_relation",
}

var SearchRecordsFunctions = []string{
	"init_search_records",
	"insert_search_record",
	"select_search_record",
	"select_search_records",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadDocumentsSql loads document-related SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadSql(db, "documents", documentsSQL, DocumentsFunctions, force)
}

// LoadFragmentsSql loads fragment-related SQL functions
func LoadFragmentsSql(db *sql.DB, force bool) error {
	return loadSql(db, "fragments", fragmentsSQL, FragmentsFunctions, force)
}

// LoadFactsSql loads fact-related SQL functions
func LoadFactsSql(db *sql.DB, force bool) error {
	return loadSql(db, "facts", factsSQL, FactsFunctions, force)
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSql(db, "entities", entitiesSQL, EntitiesFunctions, force)
}

// LoadRelationsSql loads relation-related SQL functions
func LoadRelationsSql(db *sql.DB, force bool) error {
	return loadSql(db, "relations", relationsSQL, RelationsFunctions, force)
}

// LoadSearchRecordsSql loads search record SQL functions
func LoadSearchRecordsSql(db *sql.DB, force bool) error {
	return loadSql(db, "search records", recordsSQL, SearchRecordsFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	loaders := []func(*sql.DB, bool) error{
		LoadDocumentsSql,
		LoadFragmentsSql,
		LoadFactsSql,
		LoadEntitiesSql,
		LoadRelationsSql,
		LoadSearchRecordsSql,
	}
	for _, load := range loaders {
		if err := load(db, force); err != nil {
			return err
		}
	}
	return nil
}

func loadSql(db *sql.DB, name string, functionsSQL string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(functionsSQL)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
