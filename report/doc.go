// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 report 负责把一次运行的结果渲染为 Markdown 报告并持久化。

# 渲染

Render 按固定章节输出：运行信息、原始问题、检索结果摘要（前 500 个
rune）、初始回答、审阅结果，以及从审阅文本中提取出的修正版（如果有）。

# 持久化

Sink 抽象报告的存储位置。FileSink 以 O_EXCL 方式写入目录，同名文件
已存在时返回错误，不会覆盖。FileName 根据问题前 30 个 rune 生成安全的
文件名，并带上时间戳前缀。
*/
package report
