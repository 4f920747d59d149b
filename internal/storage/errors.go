package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// matchError 先比对 S3 错误码，再退回到错误文本（网关/代理可能把错误包装成字符串）。
func matchError(err error, codes []string, phrases []string) bool {
	if err == nil {
		return false
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		code := strings.ToLower(strings.TrimSpace(minioErr.Code))
		for _, c := range codes {
			if code == c {
				return true
			}
		}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsNoSuchKey 判断对象是否不存在，删除导出文件时视为成功。
func IsNoSuchKey(err error) bool {
	return matchError(err,
		[]string{"nosuchkey", "notfound"},
		[]string{"nosuchkey", "specified key does not exist"},
	)
}

// IsNoSuchBucket 判断 Bucket 是否不存在。
func IsNoSuchBucket(err error) bool {
	return matchError(err,
		[]string{"nosuchbucket"},
		[]string{"nosuchbucket", "specified bucket does not exist"},
	)
}
