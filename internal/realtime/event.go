package realtime

import (
	"time"

	"github.com/goccy/go-json"
)

// Kind 变更类型
type Kind string

const (
	Insert Kind = "insert"
	Update Kind = "update"
	Delete Kind = "delete"
)

// 可订阅的表
const (
	TablePosts    = "posts"
	TableLikes    = "likes"
	TableFollows  = "follows"
	TableMessages = "messages"
	TableProfiles = "profiles"
)

var knownTables = map[string]bool{
	TablePosts:    true,
	TableLikes:    true,
	TableFollows:  true,
	TableMessages: true,
	TableProfiles: true,
}

// KnownTable 判断表名是否可订阅
func KnownTable(table string) bool {
	return knownTables[table]
}

// Event 一条行级变更。New 是插入/更新后的行（插入时包含关联的资料信息），
// Old 是更新/删除前的行；Fields 是可用于过滤的列值。
type Event struct {
	Table  string            `json:"table"`
	Kind   Kind              `json:"kind"`
	Key    string            `json:"key"`
	New    json.RawMessage   `json:"new,omitempty"`
	Old    json.RawMessage   `json:"old,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	At     time.Time         `json:"at"`
}

// NewEvent 序列化行快照；nil 表示没有对应的快照
func NewEvent(table string, kind Kind, key string, newRow, oldRow interface{}, fields map[string]string) (Event, error) {
	e := Event{
		Table:  table,
		Kind:   kind,
		Key:    key,
		Fields: fields,
		At:     time.Now().UTC(),
	}
	var err error
	if newRow != nil {
		if e.New, err = json.Marshal(newRow); err != nil {
			return Event{}, err
		}
	}
	if oldRow != nil {
		if e.Old, err = json.Marshal(oldRow); err != nil {
			return Event{}, err
		}
	}
	return e, nil
}

// DecodeNew 反序列化新行
func (e Event) DecodeNew(v interface{}) error {
	return json.Unmarshal(e.New, v)
}

// DecodeOld 反序列化旧行
func (e Event) DecodeOld(v interface{}) error {
	return json.Unmarshal(e.Old, v)
}
