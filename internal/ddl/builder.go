package ddl

import (
	"fmt"
	"strings"
)

// CreateS3Secret returns a DuckDB statement creating an S3 secret. An
// empty endpoint leaves the AWS default in place.
func CreateS3Secret(name, keyID, secret, endpoint, region string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid secret name: %w", err)
	}
	opts := []string{
		"TYPE S3",
		"KEY_ID " + QuoteLiteral(keyID),
		"SECRET " + QuoteLiteral(secret),
		"REGION " + QuoteLiteral(region),
	}
	if endpoint != "" {
		opts = append(opts, "ENDPOINT "+QuoteLiteral(endpoint), "URL_STYLE 'path'")
	}
	return fmt.Sprintf("CREATE SECRET %s (\n\t%s\n)", QuoteIdentifier(name), strings.Join(opts, ",\n\t")), nil
}

// CreateAzureSecret returns a DuckDB statement creating an Azure secret
// from an account name and shared key.
func CreateAzureSecret(name, accountName, accountKey string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid secret name: %w", err)
	}
	conn := fmt.Sprintf("AccountName=%s;AccountKey=%s", accountName, accountKey)
	return fmt.Sprintf(`CREATE SECRET %s (
	TYPE AZURE,
	CONNECTION_STRING %s
)`,
		QuoteIdentifier(name),
		QuoteLiteral(conn),
	), nil
}

// CreateGCSSecret returns a DuckDB statement creating a GCS secret from a
// service-account key file.
func CreateGCSSecret(name, keyFilePath string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid secret name: %w", err)
	}
	return fmt.Sprintf(`CREATE SECRET %s (
	TYPE GCS,
	KEY_FILE_PATH %s
)`,
		QuoteIdentifier(name),
		QuoteLiteral(keyFilePath),
	), nil
}

// ParquetSource returns the path expression for a parquet location. A
// directory (a reference index or a partitioned dataset) becomes a
// recursive glob over its parquet parts.
func ParquetSource(location string, dir bool) (string, error) {
	if location == "" {
		return "", fmt.Errorf("source path is required")
	}
	if dir {
		location = strings.TrimRight(location, "/") + "/**/*.parq*"
	}
	return QuoteLiteral(location), nil
}

// ParquetKeyValueSQL selects the distinct key/value metadata of the source.
func ParquetKeyValueSQL(source string) string {
	return fmt.Sprintf("SELECT DISTINCT key, value FROM parquet_kv_metadata(%s)", source)
}

// ParquetColumnsSQL describes the columns of the source without reading rows.
func ParquetColumnsSQL(source string) string {
	return fmt.Sprintf("DESCRIBE SELECT * FROM read_parquet(%s) LIMIT 0", source)
}

// ParquetSizeSQL sums the compressed size of all column chunks.
func ParquetSizeSQL(source string) string {
	return fmt.Sprintf("SELECT CAST(COALESCE(SUM(total_compressed_size), 0) AS BIGINT) FROM parquet_metadata(%s)", source)
}
