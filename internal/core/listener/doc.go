// Package listener 管理监听套接字
//
// Bind 在地址上监听并启动 Accept 循环，每个入站连接交给通道
// 初始化器装配。CloseAll 关闭全部监听器，返回的 Future 在所有
// Accept 循环退出后完成。
package listener
