// Package types 定义 modnet 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他 modnet 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - ids.go   - PeerID, ApplicationID
//   - direction.go - Direction
//
// # ID 类型
//
// PeerID 与 ApplicationID 都是 128 位 UUID 形式的值：
//   - PeerID        - 节点唯一标识，全序可比较（用于主从判定）
//   - ApplicationID - 应用作用域标识，零值表示默认作用域
package types
