package catalog

// SchemaName is the key the catalog JSON schema is registered under
const SchemaName = "duel_catalog.schema.json"
