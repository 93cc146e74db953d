// Package export writes a Parquet snapshot of an imported dataset: one
// <table>.parquet file per metastore table, bounding boxes flattened into
// nullable columns.
package export
