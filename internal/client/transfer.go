package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"

	"go.uber.org/zap"
)

const (
	zipContentType    = "application/x-zip-compressed"
	downloadChunkSize = 8192
	errorBodyLimit    = 64 << 10
)

// UploadMod uploads a mod archive. Files over MaxModSize are rejected before
// any request is made. progress, if non-nil, receives the bytes of the file
// sent so far.
func (a *API) UploadMod(ctx context.Context, mod Mod, progress ProgressFunc) error {
	if mod.Size > MaxModSize {
		return &SizeLimitError{Kind: "mod", Size: mod.Size, Limit: MaxModSize}
	}
	secret, err := a.visitSecret()
	if err != nil {
		return err
	}
	fields := map[string]string{
		"visitSecret": secret,
		"size":        strconv.FormatInt(mod.Size, 10),
	}
	return a.mutate(a.session.setModsSynced, func() error {
		return a.upload(ctx, "upload mod", pathModUpload, fields, mod.Name, mod.FilePath, mod.Size, progress)
	})
}

// UploadSave uploads a save archive into save.Slot. Files over MaxSaveSize
// are rejected before any request is made.
func (a *API) UploadSave(ctx context.Context, save Save, progress ProgressFunc) error {
	if save.Size > MaxSaveSize {
		return &SizeLimitError{Kind: "save", Size: save.Size, Limit: MaxSaveSize}
	}
	secret, err := a.visitSecret()
	if err != nil {
		return err
	}
	fields := map[string]string{
		"visitSecret": secret,
		"size":        strconv.FormatInt(save.Size, 10),
		"save":        save.Slot,
	}
	return a.mutate(a.session.setSavesSynced, func() error {
		return a.upload(ctx, "upload save", pathSaveUpload, fields, save.Name, save.FilePath, save.Size, progress)
	})
}

// DownloadSaveSlot streams a slot's save archive to path. The saves flag is
// cleared while the transfer runs and restored afterwards: a download never
// produces a confirming push.
func (a *API) DownloadSaveSlot(ctx context.Context, slot, path string, progress ProgressFunc) error {
	secret, err := a.visitSecret()
	if err != nil {
		return err
	}
	a.session.setSavesSynced(false)
	defer a.session.setSavesSynced(true)

	resp, err := a.rest.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetFormData(map[string]string{
			"visitSecret": secret,
			"save":        slot,
		}).
		Post(pathSaveDownload)
	if err != nil {
		return fmt.Errorf("download save: POST %s: %w", pathSaveDownload, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, errorBodyLimit))
		return &OperationError{
			Op:         "download save",
			Endpoint:   pathSaveDownload,
			StatusCode: resp.StatusCode(),
			Body:       string(msg),
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("download save: %w", err)
	}
	written, err := copyChunks(f, body, progress)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("download save: %w", err)
	}
	a.log.Info("save downloaded",
		zap.String("slot", slot),
		zap.String("path", path),
		zap.Int64("bytes", written))
	return nil
}

// upload streams a multipart body: the form fields, then the file, then the
// closing boundary. The file is never buffered in memory.
func (a *API) upload(ctx context.Context, op, path string, fields map[string]string, name, filePath string, size int64, progress ProgressFunc) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	head, tail, contentType, err := multipartFrame(fields, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body := io.MultiReader(
		bytes.NewReader(head),
		&progressReader{r: f, total: size, fn: progress},
		bytes.NewReader(tail),
	)

	resp, err := a.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("%s: POST %s: %w", op, path, err)
	}
	if !resp.IsSuccess() {
		return &OperationError{
			Op:         op,
			Endpoint:   path,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}
	a.log.Info("uploaded",
		zap.String("op", op),
		zap.String("file", name),
		zap.Int64("bytes", size))
	return nil
}

// multipartFrame renders everything of a multipart body except the file
// content: head ends with the file part's headers, tail is the closing
// boundary.
func multipartFrame(fields map[string]string, fileName string) (head, tail []byte, contentType string, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range []string{"visitSecret", "size", "save"} {
		v, ok := fields[k]
		if !ok {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", zipContentType)
	if _, err := w.CreatePart(h); err != nil {
		return nil, nil, "", err
	}
	head = bytes.Clone(buf.Bytes())

	buf.Reset()
	if err := w.Close(); err != nil {
		return nil, nil, "", err
	}
	tail = bytes.Clone(buf.Bytes())
	return head, tail, w.FormDataContentType(), nil
}

// progressReader reports cumulative bytes read, capped at total.
type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		if p.fn != nil {
			p.fn(min(p.done, p.total))
		}
	}
	return n, err
}

// copyChunks copies src to dst in fixed-size chunks, reporting the running
// total after each chunk is written.
func copyChunks(dst io.Writer, src io.Reader, progress ProgressFunc) (int64, error) {
	buf := make([]byte, downloadChunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if progress != nil {
				progress(written)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
