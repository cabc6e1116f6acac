package source

import (
	"bytes"
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/makeroftools/perspective/pkg/errors"
)

// parquetReader reads Parquet through pqarrow. BYTE_ARRAY columns are read
// as int32-keyed dictionaries, the only string encoding the materializer
// accepts. Each row group gets its own record reader so that no batch mixes
// the dictionaries of two column chunks.
type parquetReader struct {
	pf     *file.Reader
	fr     *pqarrow.FileReader
	schema *arrow.Schema

	rr       pqarrow.RecordReader
	rowGroup int
}

func newParquetReader(data []byte, opts Options) (*parquetReader, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(data),
		file.WithReadProps(parquet.NewReaderProperties(opts.Allocator)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open Parquet file")
	}

	props := pqarrow.ArrowReadProperties{BatchSize: opts.BatchSize}
	sc := pf.MetaData().Schema
	for i := 0; i < sc.NumColumns(); i++ {
		if sc.Column(i).PhysicalType() == parquet.Types.ByteArray {
			props.SetReadDict(i, true)
		}
	}

	fr, err := pqarrow.NewFileReader(pf, props, opts.Allocator)
	if err != nil {
		pf.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to create Parquet Arrow reader")
	}

	schema, err := fr.Schema()
	if err != nil {
		pf.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Parquet schema")
	}

	return &parquetReader{pf: pf, fr: fr, schema: schema}, nil
}

func (r *parquetReader) Schema() *arrow.Schema { return r.schema }

func (r *parquetReader) Format() Format { return FormatParquet }

func (r *parquetReader) Next(ctx context.Context) (arrow.Record, error) {
	for {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}

		if r.rr == nil {
			if r.rowGroup >= r.pf.NumRowGroups() {
				return nil, io.EOF
			}
			rr, err := r.fr.GetRecordReader(ctx, nil, []int{r.rowGroup})
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to create Parquet record reader").
					WithDetail("row_group", r.rowGroup)
			}
			r.rr = rr
			r.rowGroup++
		}

		if r.rr.Next() {
			rec := r.rr.Record()
			rec.Retain()
			return rec, nil
		}

		err := r.rr.Err()
		r.rr.Release()
		r.rr = nil
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Parquet row group").
				WithDetail("row_group", r.rowGroup-1)
		}
	}
}

func (r *parquetReader) Close() error {
	if r.rr != nil {
		r.rr.Release()
		r.rr = nil
	}
	if err := r.pf.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Parquet file")
	}
	return nil
}
