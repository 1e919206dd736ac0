package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

// MaxGriddedDownload caps the size of a remote gridded file copied to local
// disk for inspection.
const MaxGriddedDownload = 4 << 30

var (
	cdfMagic  = []byte("CDF")
	hdf5Magic = []byte("\x89HDF\r\n\x1a\n")
)

// Attributes maintained by the netCDF-4 library itself.
var reservedAttrs = map[string]bool{
	"_NCProperties":       true,
	"_IsNetcdf4":          true,
	"_SuperblockVersion":  true,
	"_Netcdf4Coordinates": true,
	"_Netcdf4Dimid":       true,
	"_nc3_strict":         true,
}

// NetCDFAdapter reads global attributes, variables and data size of
// gridded files: classic netCDF (CDF-1, CDF-2 and CDF-5) and netCDF-4
// files in HDF5 containers.
type NetCDFAdapter struct {
	store domain.ObjectStore
}

// NewNetCDFAdapter creates a NetCDFAdapter reading through store.
func NewNetCDFAdapter(store domain.ObjectStore) *NetCDFAdapter {
	return &NetCDFAdapter{store: store}
}

// Open reads the entry's first location. Remote files are copied to a
// temporary file first since both formats need random access.
func (a *NetCDFAdapter) Open(ctx context.Context, e *domain.Entry) (*domain.Dataset, error) {
	if e.Kind != domain.BackendGriddedFile {
		return nil, fmt.Errorf("%w: netcdf adapter cannot open %s entries", domain.ErrUnsupportedBackend, e.Kind)
	}
	loc := e.Locations[0]
	if domain.IsReference(loc) {
		return nil, fmt.Errorf("%w: reference-indexed gridded file %s", domain.ErrUnsupportedBackend, loc)
	}

	path, cleanup, err := a.localCopy(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ds, err := ReadNetCDF(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return ds, nil
}

// localCopy checks the format signature of loc and returns a local path
// holding its content. The cleanup function removes temporary copies.
func (a *NetCDFAdapter) localCopy(ctx context.Context, loc string) (string, func(), error) {
	rc, err := a.store.Open(ctx, loc)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close() //nolint:errcheck

	magic := make([]byte, len(hdf5Magic))
	n, err := io.ReadFull(rc, magic)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read %s: %w", loc, err)
	}
	magic = magic[:n]
	if !bytes.HasPrefix(magic, cdfMagic) && !bytes.Equal(magic, hdf5Magic) {
		return "", nil, domain.ErrValidation("%s is not a netCDF file", loc)
	}

	if !storage.IsRemote(loc) {
		return strings.TrimPrefix(loc, "file://"), func() {}, nil
	}

	f, err := os.CreateTemp("", "forge-*.nc")
	if err != nil {
		return "", nil, fmt.Errorf("create temporary copy of %s: %w", loc, err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	written, err := io.Copy(f, io.MultiReader(bytes.NewReader(magic), io.LimitReader(rc, MaxGriddedDownload)))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > MaxGriddedDownload {
		err = domain.ErrValidation("%s exceeds %d bytes", loc, MaxGriddedDownload)
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("copy %s: %w", loc, err)
	}
	return f.Name(), cleanup, nil
}

// ReadNetCDF reads the dataset description of the gridded file at path.
// Attributes of the root group become dataset attributes.
func ReadNetCDF(path string) (*domain.Dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer nc.Close() //nolint:errcheck

	ds := &domain.Dataset{Attrs: attributeValues(nc.Attributes())}
	for _, name := range nc.ListVariables() {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		ds.Variables = append(ds.Variables, name)
		ds.SizeBytes += shapeElements(vg.Shape()) * ncItemSize(vg.Type(), vg.GoType())
	}
	sort.Strings(ds.Variables)
	return ds, nil
}

func attributeValues(am api.AttributeMap) map[string]any {
	attrs := map[string]any{}
	if am == nil {
		return attrs
	}
	for _, k := range am.Keys() {
		if reservedAttrs[k] {
			continue
		}
		v, ok := am.Get(k)
		if !ok {
			continue
		}
		attrs[k] = attributeValue(v)
	}
	return attrs
}

// attributeValue unwraps single-element arrays and widens numbers to
// int64, uint64 or float64.
func attributeValue(v any) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return strings.TrimRight(s, "\x00")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return scalarValue(rv)
	}
	if rv.Len() == 1 {
		return scalarValue(rv.Index(0))
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = scalarValue(rv.Index(i))
	}
	return out
}

func scalarValue(rv reflect.Value) any {
	switch {
	case rv.CanInt():
		return rv.Int()
	case rv.CanUint():
		return rv.Uint()
	case rv.Kind() == reflect.Float32:
		// Shortest float32 spelling, so 0.1 stays 0.1.
		f, _ := strconv.ParseFloat(strconv.FormatFloat(rv.Float(), 'g', -1, 32), 64)
		return f
	case rv.CanFloat():
		return rv.Float()
	case rv.Kind() == reflect.String:
		return strings.TrimRight(rv.String(), "\x00")
	default:
		return rv.Interface()
	}
}

func shapeElements(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// ncTypeSizes maps CDL and Go type names to their item size.
var ncTypeSizes = map[string]int64{
	"byte": 1, "ubyte": 1, "char": 1, "int8": 1, "uint8": 1,
	"short": 2, "ushort": 2, "int16": 2, "uint16": 2,
	"int": 4, "uint": 4, "float": 4, "int32": 4, "uint32": 4, "float32": 4,
	"int64": 8, "uint64": 8, "double": 8, "float64": 8,
}

// ncItemSize returns the size of the first known type name, or 0 for
// strings, compounds and other variable-size types.
func ncItemSize(names ...string) int64 {
	for _, name := range names {
		if n, ok := ncTypeSizes[name]; ok {
			return n
		}
	}
	return 0
}
