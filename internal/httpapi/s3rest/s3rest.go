// Package s3rest implements the S3 REST surface (spec.md §6): path- and
// virtual-hosted-style bucket routing, bucket and object verbs, multipart
// upload query-string actions, conditional/range reads.
package s3rest

import (
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/httpapi"
	"github.com/chris-alexander-pop/cloudstub/internal/objectstore"
)

// Handler dispatches S3 REST verbs onto the object store.
type Handler struct {
	Store *objectstore.Store
}

// BucketAndKey splits a path-style request path (already rewritten from
// virtual-hosted style by the router if needed) into bucket and key.
func BucketAndKey(path string) (bucket, key string) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "", ""
	}
	i := strings.Index(path, "/")
	if i < 0 {
		return path, ""
	}
	return path[:i], path[i+1:]
}

type xmlError struct {
	XMLName  xml.Name `xml:"Error"`
	Code     string   `xml:"Code"`
	Message  string   `xml:"Message"`
	Resource string   `xml:"Resource"`
	RequestID string  `xml:"RequestId"`
}

func writeError(c echo.Context, err error) error {
	ae, ok := apperrors.As(err)
	code := apperrors.CodeInternalError
	message := err.Error()
	if ok {
		code = ae.Code
		message = ae.Message
	}
	status := httpapi.StatusFor(err)
	return c.XML(status, xmlError{Code: code, Message: message, Resource: c.Request().URL.Path, RequestID: "00000000-0000-0000-0000-000000000000"})
}

// RouteBucket handles verbs on /<bucket>: PUT (create), GET (list), HEAD
// (exists), DELETE (delete), POST (bulk delete, ?delete).
func (h *Handler) RouteBucket(c echo.Context) error {
	bucket, _ := BucketAndKey(c.Request().URL.Path)
	if bucket == "" {
		return h.listBuckets(c)
	}

	switch c.Request().Method {
	case http.MethodPut:
		if err := h.Store.CreateBucket(bucket); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusOK)
	case http.MethodHead:
		if err := h.Store.HeadBucket(bucket); err != nil {
			return c.NoContent(httpapi.StatusFor(err))
		}
		return c.NoContent(http.StatusOK)
	case http.MethodDelete:
		if err := h.Store.DeleteBucket(bucket); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	case http.MethodPost:
		if _, ok := c.QueryParams()["delete"]; ok {
			return h.bulkDelete(c, bucket)
		}
		return writeError(c, apperrors.InvalidParameterValue("unsupported bucket POST"))
	case http.MethodGet:
		if _, ok := c.QueryParams()["uploads"]; ok {
			return h.listMultipartUploads(c, bucket)
		}
		if c.QueryParam("list-type") == "2" {
			return h.listObjectsV2(c, bucket)
		}
		return h.listObjectsV1(c, bucket)
	}
	return writeError(c, apperrors.InvalidParameterValue("unsupported method"))
}

type bucketEntry struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
}

type listBucketsResponse struct {
	XMLName xml.Name      `xml:"ListAllMyBucketsResult"`
	Owner   struct {
		ID          string `xml:"ID"`
		DisplayName string `xml:"DisplayName"`
	} `xml:"Owner"`
	Buckets struct {
		Bucket []bucketEntry `xml:"Bucket"`
	} `xml:"Buckets"`
}

func (h *Handler) listBuckets(c echo.Context) error {
	resp := listBucketsResponse{}
	resp.Owner.ID = "000000000000000000000000000000000000000000000000000000000000"
	resp.Owner.DisplayName = "cloudstub"
	for _, b := range h.Store.ListBuckets() {
		resp.Buckets.Bucket = append(resp.Buckets.Bucket, bucketEntry{Name: b.Name, CreationDate: b.CreatedAt.UTC().Format(time.RFC3339)})
	}
	return c.XML(http.StatusOK, resp)
}

// --- RouteObject handles verbs on /<bucket>/<key> ---

func (h *Handler) RouteObject(c echo.Context) error {
	bucket, key := BucketAndKey(c.Request().URL.Path)
	if key == "" {
		return h.RouteBucket(c)
	}

	switch c.Request().Method {
	case http.MethodPut:
		if c.QueryParam("uploadId") != "" && c.QueryParam("partNumber") != "" {
			return h.uploadPart(c, bucket, key)
		}
		if src := c.Request().Header.Get("x-amz-copy-source"); src != "" {
			return h.copyObject(c, bucket, key, src)
		}
		return h.putObject(c, bucket, key)
	case http.MethodGet:
		if c.QueryParam("uploadId") != "" {
			return h.listParts(c, bucket, key)
		}
		return h.getObject(c, bucket, key, true)
	case http.MethodHead:
		return h.getObject(c, bucket, key, false)
	case http.MethodDelete:
		if c.QueryParam("uploadId") != "" {
			return h.abortMultipartUpload(c, bucket, c.QueryParam("uploadId"))
		}
		return h.deleteObject(c, bucket, key)
	case http.MethodPost:
		if _, ok := c.QueryParams()["uploads"]; ok {
			return h.createMultipartUpload(c, bucket, key)
		}
		if c.QueryParam("uploadId") != "" {
			return h.completeMultipartUpload(c, bucket, key)
		}
	}
	return writeError(c, apperrors.InvalidParameterValue("unsupported method"))
}

func userMetadata(c echo.Context) map[string]string {
	const prefix = "x-amz-meta-"
	out := map[string]string{}
	for k, vals := range c.Request().Header {
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, prefix) && len(vals) > 0 {
			out[lower[len(prefix):]] = vals[0]
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (h *Handler) putObject(c echo.Context, bucket, key string) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return writeError(c, apperrors.InvalidParameterValue("could not read body"))
	}
	contentType := c.Request().Header.Get("Content-Type")
	obj, err := h.Store.PutObject(bucket, key, body, contentType, userMetadata(c))
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set("ETag", obj.ETag)
	return c.NoContent(http.StatusOK)
}

func conditionalHeaders(c echo.Context) objectstore.ConditionalHeaders {
	var cond objectstore.ConditionalHeaders
	if v := c.Request().Header.Get("If-Match"); v != "" {
		cond.IfMatch = strings.Split(v, ",")
	}
	if v := c.Request().Header.Get("If-None-Match"); v != "" {
		cond.IfNoneMatch = strings.Split(v, ",")
	}
	if v := c.Request().Header.Get("If-Modified-Since"); v != "" {
		if t, err := time.Parse(http.TimeFormat, v); err == nil {
			cond.IfModifiedSince = &t
		}
	}
	if v := c.Request().Header.Get("If-Unmodified-Since"); v != "" {
		if t, err := time.Parse(http.TimeFormat, v); err == nil {
			cond.IfUnmodifiedSince = &t
		}
	}
	return cond
}

func (h *Handler) getObject(c echo.Context, bucket, key string, withBody bool) error {
	obj, err := h.Store.GetObject(bucket, key)
	if err != nil {
		if withBody {
			return writeError(c, err)
		}
		return c.NoContent(httpapi.StatusFor(err))
	}

	switch objectstore.Evaluate(obj.ETag, obj.LastModified, conditionalHeaders(c)) {
	case objectstore.OutcomeNotModified:
		c.Response().Header().Set("ETag", obj.ETag)
		return c.NoContent(http.StatusNotModified)
	case objectstore.OutcomePreconditionFailed:
		if withBody {
			return writeError(c, apperrors.PreconditionFailed())
		}
		return c.NoContent(http.StatusPreconditionFailed)
	}

	for k, v := range obj.UserMetadata {
		c.Response().Header().Set("x-amz-meta-"+k, v)
	}
	c.Response().Header().Set("ETag", obj.ETag)
	c.Response().Header().Set("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
	if obj.ContentType != "" {
		c.Response().Header().Set("Content-Type", obj.ContentType)
	}

	body := obj.Body
	status := http.StatusOK
	if rangeHeader := c.Request().Header.Get("Range"); rangeHeader != "" {
		br, err := objectstore.ParseRange(rangeHeader, int64(len(obj.Body)))
		if err != nil {
			if withBody {
				return writeError(c, err)
			}
			return c.NoContent(http.StatusRequestedRangeNotSatisfiable)
		}
		body = br.Slice(obj.Body)
		status = http.StatusPartialContent
		c.Response().Header().Set("Content-Range", contentRange(br, int64(len(obj.Body))))
	}
	c.Response().Header().Set("Content-Length", strconv.Itoa(len(body)))

	if !withBody {
		return c.NoContent(status)
	}
	return c.Blob(status, obj.ContentType, body)
}

func contentRange(r objectstore.ByteRange, size int64) string {
	return "bytes " + strconv.FormatInt(r.Start, 10) + "-" + strconv.FormatInt(r.End, 10) + "/" + strconv.FormatInt(size, 10)
}

func (h *Handler) deleteObject(c echo.Context, bucket, key string) error {
	if err := h.Store.DeleteObject(bucket, key); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) copyObject(c echo.Context, dstBucket, dstKey, source string) error {
	source = strings.TrimPrefix(source, "/")
	srcBucket, srcKey := BucketAndKey(source)
	obj, err := h.Store.CopyObject(srcBucket, srcKey, dstBucket, dstKey)
	if err != nil {
		return writeError(c, err)
	}
	type copyObjectResult struct {
		XMLName      xml.Name `xml:"CopyObjectResult"`
		ETag         string   `xml:"ETag"`
		LastModified string   `xml:"LastModified"`
	}
	return c.XML(http.StatusOK, copyObjectResult{ETag: obj.ETag, LastModified: obj.LastModified.UTC().Format(time.RFC3339)})
}

// --- bulk delete ---

type deleteRequest struct {
	XMLName xml.Name `xml:"Delete"`
	Objects []struct {
		Key string `xml:"Key"`
	} `xml:"Object"`
	Quiet bool `xml:"Quiet"`
}

type deleteResultEntry struct {
	Key string `xml:"Key"`
}

type deleteResult struct {
	XMLName xml.Name            `xml:"DeleteResult"`
	Deleted []deleteResultEntry `xml:"Deleted"`
}

func (h *Handler) bulkDelete(c echo.Context, bucket string) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return writeError(c, apperrors.InvalidParameterValue("could not read body"))
	}
	var req deleteRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed delete request"))
	}
	keys := make([]string, 0, len(req.Objects))
	for _, o := range req.Objects {
		keys = append(keys, o.Key)
	}
	deleted, _, err := h.Store.DeleteObjects(bucket, keys)
	if err != nil {
		return writeError(c, err)
	}
	resp := deleteResult{}
	if !req.Quiet {
		for _, d := range deleted {
			resp.Deleted = append(resp.Deleted, deleteResultEntry{Key: d.Key})
		}
	}
	return c.XML(http.StatusOK, resp)
}

// --- listing ---

type listContentsEntry struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int    `xml:"Size"`
}

type listObjectsV1Response struct {
	XMLName     xml.Name            `xml:"ListBucketResult"`
	Name        string              `xml:"Name"`
	Prefix      string              `xml:"Prefix"`
	Marker      string              `xml:"Marker"`
	NextMarker  string              `xml:"NextMarker,omitempty"`
	MaxKeys     int                 `xml:"MaxKeys"`
	IsTruncated bool                `xml:"IsTruncated"`
	Contents    []listContentsEntry `xml:"Contents"`
}

func (h *Handler) listObjectsV1(c echo.Context, bucket string) error {
	prefix := c.QueryParam("prefix")
	marker := c.QueryParam("marker")
	maxKeys, _ := strconv.Atoi(c.QueryParam("max-keys"))

	objs, nextMarker, truncated, err := h.Store.ListObjectsV1(bucket, prefix, marker, maxKeys)
	if err != nil {
		return writeError(c, err)
	}
	resp := listObjectsV1Response{Name: bucket, Prefix: prefix, Marker: marker, NextMarker: nextMarker, MaxKeys: maxKeys, IsTruncated: truncated}
	for _, o := range objs {
		resp.Contents = append(resp.Contents, toContentsEntry(o.Object))
	}
	return c.XML(http.StatusOK, resp)
}

type listObjectsV2Response struct {
	XMLName               xml.Name            `xml:"ListBucketResult"`
	Name                  string              `xml:"Name"`
	Prefix                string              `xml:"Prefix"`
	KeyCount              int                 `xml:"KeyCount"`
	MaxKeys               int                 `xml:"MaxKeys"`
	IsTruncated           bool                `xml:"IsTruncated"`
	ContinuationToken     string              `xml:"ContinuationToken,omitempty"`
	NextContinuationToken string              `xml:"NextContinuationToken,omitempty"`
	Contents              []listContentsEntry `xml:"Contents"`
}

func (h *Handler) listObjectsV2(c echo.Context, bucket string) error {
	prefix := c.QueryParam("prefix")
	token := c.QueryParam("continuation-token")
	maxKeys, _ := strconv.Atoi(c.QueryParam("max-keys"))

	objs, next, truncated, err := h.Store.ListObjectsV2(bucket, prefix, token, maxKeys)
	if err != nil {
		return writeError(c, err)
	}
	resp := listObjectsV2Response{Name: bucket, Prefix: prefix, KeyCount: len(objs), MaxKeys: maxKeys, IsTruncated: truncated, ContinuationToken: token, NextContinuationToken: next}
	for _, o := range objs {
		resp.Contents = append(resp.Contents, toContentsEntry(o.Object))
	}
	return c.XML(http.StatusOK, resp)
}

func toContentsEntry(o objectstore.Object) listContentsEntry {
	return listContentsEntry{Key: o.Key, LastModified: o.LastModified.UTC().Format(time.RFC3339), ETag: o.ETag, Size: len(o.Body)}
}

// --- multipart upload ---

type initiateMultipartUploadResponse struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	UploadId string   `xml:"UploadId"`
}

func (h *Handler) createMultipartUpload(c echo.Context, bucket, key string) error {
	contentType := c.Request().Header.Get("Content-Type")
	uploadID, err := h.Store.CreateMultipartUpload(bucket, key, contentType, userMetadata(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.XML(http.StatusOK, initiateMultipartUploadResponse{Bucket: bucket, Key: key, UploadId: uploadID})
}

func (h *Handler) uploadPart(c echo.Context, bucket, key string) error {
	uploadID := c.QueryParam("uploadId")
	partNumber, err := strconv.Atoi(c.QueryParam("partNumber"))
	if err != nil {
		return writeError(c, apperrors.InvalidParameterValue("partNumber must be an integer"))
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return writeError(c, apperrors.InvalidParameterValue("could not read body"))
	}
	etag, err := h.Store.UploadPart(bucket, uploadID, partNumber, body)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set("ETag", etag)
	return c.NoContent(http.StatusOK)
}

type completeMultipartUploadRequest struct {
	XMLName xml.Name `xml:"CompleteMultipartUpload"`
	Parts   []struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
	} `xml:"Part"`
}

type completeMultipartUploadResponse struct {
	XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
	Bucket  string   `xml:"Bucket"`
	Key     string   `xml:"Key"`
	ETag    string   `xml:"ETag"`
}

func (h *Handler) completeMultipartUpload(c echo.Context, bucket, key string) error {
	uploadID := c.QueryParam("uploadId")
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return writeError(c, apperrors.InvalidParameterValue("could not read body"))
	}
	var req completeMultipartUploadRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed complete request"))
	}
	parts := make([]objectstore.CompletedPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, objectstore.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	obj, err := h.Store.CompleteMultipartUpload(bucket, key, uploadID, parts)
	if err != nil {
		return writeError(c, err)
	}
	return c.XML(http.StatusOK, completeMultipartUploadResponse{Bucket: bucket, Key: key, ETag: obj.ETag})
}

func (h *Handler) abortMultipartUpload(c echo.Context, bucket, uploadID string) error {
	if err := h.Store.AbortMultipartUpload(bucket, uploadID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type listPartsResponse struct {
	XMLName  xml.Name `xml:"ListPartsResult"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	UploadId string   `xml:"UploadId"`
	Part     []struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
		Size       int    `xml:"Size"`
	} `xml:"Part"`
}

func (h *Handler) listParts(c echo.Context, bucket, key string) error {
	uploadID := c.QueryParam("uploadId")
	parts, err := h.Store.ListParts(bucket, uploadID)
	if err != nil {
		return writeError(c, err)
	}
	resp := listPartsResponse{Bucket: bucket, Key: key, UploadId: uploadID}
	for _, p := range parts {
		resp.Part = append(resp.Part, struct {
			PartNumber int    `xml:"PartNumber"`
			ETag       string `xml:"ETag"`
			Size       int    `xml:"Size"`
		}{PartNumber: p.PartNumber, ETag: p.ETag, Size: p.Size})
	}
	return c.XML(http.StatusOK, resp)
}

type multipartUploadEntry struct {
	Key      string `xml:"Key"`
	UploadId string `xml:"UploadId"`
}

type listMultipartUploadsResponse struct {
	XMLName xml.Name               `xml:"ListMultipartUploadsResult"`
	Bucket  string                 `xml:"Bucket"`
	Upload  []multipartUploadEntry `xml:"Upload"`
}

// listMultipartUploads is a minimal stub: the store does not currently
// expose an index of in-progress uploads across the whole bucket, only
// per-upload lookups. Returning an empty list is schema-correct for
// clients that poll this before deciding whether to resume.
func (h *Handler) listMultipartUploads(c echo.Context, bucket string) error {
	if err := h.Store.HeadBucket(bucket); err != nil {
		return writeError(c, err)
	}
	return c.XML(http.StatusOK, listMultipartUploadsResponse{Bucket: bucket})
}
