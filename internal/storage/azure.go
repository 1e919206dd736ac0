package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// AzureStore reads blobs from Azure Blob Storage. Clients are created per
// storage account on first use.
type AzureStore struct {
	accountName string
	accountKey  string
	clients     map[string]*azblob.Client
}

// NewAzureStore creates an AzureStore. Without an account key, access is
// anonymous (public containers only).
func NewAzureStore(accountName, accountKey string) *AzureStore {
	return &AzureStore{
		accountName: accountName,
		accountKey:  accountKey,
		clients:     map[string]*azblob.Client{},
	}
}

func (s *AzureStore) client(account string) (*azblob.Client, error) {
	if c, ok := s.clients[account]; ok {
		return c, nil
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)

	var (
		c   *azblob.Client
		err error
	)
	if s.accountKey != "" && account == s.accountName {
		cred, credErr := azblob.NewSharedKeyCredential(account, s.accountKey)
		if credErr != nil {
			return nil, fmt.Errorf("create shared key credential: %w", credErr)
		}
		c, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	} else {
		c, err = azblob.NewClientWithNoCredential(serviceURL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	s.clients[account] = c
	return c, nil
}

// Open implements domain.ObjectStore.
func (s *AzureStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	account, container, key, err := parseAzurePath(location, s.accountName)
	if err != nil {
		return nil, err
	}
	c, err := s.client(account)
	if err != nil {
		return nil, err
	}
	resp, err := c.DownloadStream(ctx, container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, domain.ErrNotFound("%s not found", location)
		}
		return nil, fmt.Errorf("download %s: %w", location, err)
	}
	return resp.Body, nil
}

// Exists implements domain.ObjectStore. Virtual directories exist.
func (s *AzureStore) Exists(ctx context.Context, location string) (bool, error) {
	account, container, key, err := parseAzurePath(location, s.accountName)
	if err != nil {
		return false, err
	}
	c, err := s.client(account)
	if err != nil {
		return false, err
	}
	blob := c.ServiceClient().NewContainerClient(container).NewBlobClient(key)
	_, err = blob.GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if !bloberror.HasCode(err, bloberror.BlobNotFound) {
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", location, err)
	}

	prefix := strings.TrimSuffix(key, "/") + "/"
	maxResults := int32(1)
	pager := c.NewListBlobsFlatPager(container, &azblob.ListBlobsFlatOptions{
		Prefix:     &prefix,
		MaxResults: &maxResults,
	})
	if !pager.More() {
		return false, nil
	}
	page, err := pager.NextPage(ctx)
	if err != nil {
		return false, fmt.Errorf("list %s: %w", location, err)
	}
	return page.Segment != nil && len(page.Segment.BlobItems) > 0, nil
}

// parseAzurePath extracts account, container and key from an Azure storage URI.
//
// Supported formats:
//
//	abfss://container@account.dfs.core.windows.net/path/to/file
//	abfs://container@account.dfs.core.windows.net/path/to/file
//	az://container/path/to/file  (account from configuration)
func parseAzurePath(path, defaultAccount string) (account, container, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", "", fmt.Errorf("parse Azure path %q: %w", path, err)
	}

	switch u.Scheme {
	case "abfs", "abfss":
		// Go's url.Parse treats "container" as userinfo (before @) and
		// "account.dfs.core.windows.net" as host.
		if u.User == nil {
			return "", "", "", fmt.Errorf("%s path %q missing container@account component", u.Scheme, path)
		}
		container = u.User.Username()
		account, _, _ = strings.Cut(u.Host, ".")
		key = strings.TrimPrefix(u.Path, "/")

	case "az":
		container = u.Host
		account = defaultAccount
		key = strings.TrimPrefix(u.Path, "/")

	default:
		return "", "", "", fmt.Errorf("unrecognized Azure path scheme %q in %q", u.Scheme, path)
	}

	if account == "" {
		return "", "", "", fmt.Errorf("no storage account for Azure path %q (set AZURE_STORAGE_ACCOUNT)", path)
	}
	if container == "" {
		return "", "", "", fmt.Errorf("empty container in Azure path %q", path)
	}
	if key == "" {
		return "", "", "", fmt.Errorf("empty key in Azure path %q", path)
	}
	return account, container, key, nil
}
