package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cvbuilder/internal/config"
)

// Client 封装 MinIO 客户端：导出的 PDF 与版式缩略图都存放在同一个私有 Bucket。
// 上传走内网地址，预签名链接用对外地址签发，浏览器才能直接访问。
type Client struct {
	internalClient *minio.Client
	publicClient   *minio.Client
	bucketName     string
}

func parseBucketLookup(raw string) (minio.BucketLookupType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return minio.BucketLookupAuto, nil
	case "dns":
		return minio.BucketLookupDNS, nil
	case "path":
		return minio.BucketLookupPath, nil
	}
	return minio.BucketLookupAuto, fmt.Errorf("invalid minio bucket lookup %q", raw)
}

// publicEndpoint 把 http(s)://host[:port] 拆成 minio.New 需要的 host 与 TLS 开关。
func publicEndpoint(raw string) (host string, secure bool, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false, fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid minio public endpoint %q, host missing", raw)
	}
	return u.Host, u.Scheme == "https", nil
}

// NewClient 根据配置初始化 MinIO 客户端，并确保目标 Bucket 存在。
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	lookup, err := parseBucketLookup(cfg.BucketLookup)
	if err != nil {
		return nil, err
	}
	creds := credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	internalClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        creds,
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init internal minio client: %w", err)
	}

	host, secure, err := publicEndpoint(cfg.PublicEndpoint)
	if err != nil {
		return nil, err
	}
	publicClient, err := minio.New(host, &minio.Options{
		Creds:        creds,
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init public minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := internalClient.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
		}
		if err := internalClient.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Client{
		internalClient: internalClient,
		publicClient:   publicClient,
		bucketName:     cfg.Bucket,
	}, nil
}

// UploadFile 将对象上传到私有 Bucket，并返回上传结果。
func (c *Client) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error) {
	info, err := c.internalClient.PutObject(ctx, c.bucketName, objectName, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", objectName, err)
	}
	return &info, nil
}

// GeneratePresignedURL 生成对象的限时访问链接。
func (c *Client) GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error) {
	return c.presign(ctx, objectKey, duration, nil)
}

// GenerateDownloadURL 生成以 filename 作为附件名的限时下载链接。
func (c *Client) GenerateDownloadURL(ctx context.Context, objectKey, filename string, duration time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", ContentDisposition(filename))
	return c.presign(ctx, objectKey, duration, params)
}

func (c *Client) presign(ctx context.Context, objectKey string, duration time.Duration, params url.Values) (string, error) {
	u, err := c.publicClient.PresignedGetObject(ctx, c.bucketName, objectKey, duration, params)
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", objectKey, err)
	}
	return u.String(), nil
}

// ContentDisposition 返回附件下载头，非 ASCII 文件名按 RFC 2231 编码。
func ContentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// DeletePrefix 批量删除前缀下的所有对象，删除一份简历时清理其导出文件。
// 已不存在的对象或 Bucket 视为成功。
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return errors.New("refusing to delete empty prefix")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := make(chan minio.ObjectInfo)
	listDone := make(chan struct{})
	var listErr error
	go func() {
		defer close(listDone)
		defer close(objects)
		for object := range c.internalClient.ListObjects(ctx, c.bucketName, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				if !IsNoSuchBucket(object.Err) {
					listErr = fmt.Errorf("list objects under %q: %w", prefix, object.Err)
				}
				return
			}
			select {
			case objects <- object:
			case <-ctx.Done():
				return
			}
		}
	}()

	var errs []error
	for result := range c.internalClient.RemoveObjects(ctx, c.bucketName, objects, minio.RemoveObjectsOptions{}) {
		if result.Err != nil && !IsNoSuchKey(result.Err) {
			errs = append(errs, fmt.Errorf("remove %q: %w", result.ObjectName, result.Err))
		}
	}
	cancel()
	<-listDone
	if listErr != nil {
		errs = append(errs, listErr)
	}
	return errors.Join(errs...)
}
