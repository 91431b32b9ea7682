package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound は key に対応するファイルが存在しない場合のエラー
var ErrNotFound = errors.New("storage: not found")

// Storage はドキュメントファイルの読み書きを抽象化するインターフェース。
// Save は全体の置き換えで、途中まで書かれた状態が読み手に見えてはならない。
type Storage interface {
	// Read は key の内容と最終更新時刻を返す。存在しない場合は ErrNotFound。
	Read(ctx context.Context, key string) ([]byte, time.Time, error)

	// Save は key の内容を data で置き換え、最終更新時刻を返す。
	Save(ctx context.Context, key string, data []byte) (time.Time, error)

	// Ping は保存先が利用可能か確認する。
	Ping(ctx context.Context) error
}
