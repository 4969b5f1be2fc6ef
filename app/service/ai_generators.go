package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"edusloth/app/model"

	"github.com/sashabaranov/go-openai"
)

// chat 单轮对话调用
func (s *AIService) chat(ctx context.Context, userPrompt string, maxTokens int) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("对话请求失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("对话响应为空")
	}
	return resp.Choices[0].Message.Content, nil
}

// splitChunks 按最大长度切分文本
func splitChunks(text string, chunkSize int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	chunks := make([]string, 0, (len(text)+chunkSize-1)/chunkSize)
	for len(text) > chunkSize {
		end := chunkSize
		// 回退到 UTF-8 字符边界，避免把多字节字符切成两半
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == 0 {
			end = chunkSize
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

// generateSummary 生成摘要，超长文本分块后二次汇总
func (s *AIService) generateSummary(ctx context.Context, text string) (string, error) {
	if len(text) <= maxChunkSize {
		return s.chat(ctx, "Summarize the following document in a clear, concise way that captures the main points:\n\n"+text, 1000)
	}

	chunks := splitChunks(text, maxChunkSize)
	s.log.Infof("文本过长（%d 字符），分 %d 块汇总", len(text), len(chunks))

	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		prompt := fmt.Sprintf("This is part %d of %d of a document. Summarize this section concisely:\n\n%s", i+1, len(chunks), chunk)
		summary, err := s.chat(ctx, prompt, 500)
		if err != nil {
			s.log.Warnf("第 %d 块摘要失败: %v", i+1, err)
			summaries = append(summaries, fmt.Sprintf("[Error summarizing part %d]", i+1))
			continue
		}
		summaries = append(summaries, summary)
	}

	combined := strings.Join(summaries, "\n\n")
	final, err := s.chat(ctx, "Below are summaries of different parts of a document. Create a coherent overall summary that captures the main points from all sections:\n\n"+combined, 1000)
	if err != nil {
		// 汇总失败时退回分块摘要
		return combined, nil
	}
	return final, nil
}

// generateFlashcards 生成闪卡
func (s *AIService) generateFlashcards(ctx context.Context, text string) ([]model.Flashcard, error) {
	chunks := splitChunks(text, maxChunkSize)
	cardsPerChunk := 10
	if len(chunks) > 1 {
		cardsPerChunk = 10 / len(chunks)
		if cardsPerChunk < 2 {
			cardsPerChunk = 2
		}
	}

	var all []model.Flashcard
	for i, chunk := range chunks {
		prompt := fmt.Sprintf("Based on the following document, create %d flashcards with question and answer pairs that cover the most important concepts. Format as a JSON array of objects with 'question' and 'answer' fields.\n\n%s", cardsPerChunk, chunk)
		content, err := s.chat(ctx, prompt, 1500)
		if err != nil {
			if len(chunks) == 1 {
				return nil, err
			}
			s.log.Warnf("第 %d 块闪卡生成失败: %v", i+1, err)
			continue
		}

		var cards []model.Flashcard
		if err := unmarshalJSONArray(content, &cards); err != nil {
			if len(chunks) == 1 {
				return nil, fmt.Errorf("解析闪卡失败: %w", err)
			}
			s.log.Warnf("第 %d 块闪卡解析失败: %v", i+1, err)
			continue
		}
		all = append(all, cards...)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("未生成任何闪卡")
	}
	if len(all) > 10 {
		all = all[:10]
	}
	return all, nil
}

// generateQuiz 生成测验题
func (s *AIService) generateQuiz(ctx context.Context, text string) ([]model.QuizQuestion, error) {
	chunks := splitChunks(text, maxChunkSize)
	questionsPerChunk := 5
	if len(chunks) > 1 {
		questionsPerChunk = 5 / len(chunks)
		if questionsPerChunk < 1 {
			questionsPerChunk = 1
		}
	}

	var all []model.QuizQuestion
	for i, chunk := range chunks {
		prompt := fmt.Sprintf("Based on the following document, create %d multiple-choice quiz questions with 4 options each. Format as a JSON array of objects with 'question', 'options' (array of 4 strings), 'correct_option' (integer 0-3), and 'explanation' fields.\n\n%s", questionsPerChunk, chunk)
		content, err := s.chat(ctx, prompt, 1500)
		if err != nil {
			if len(chunks) == 1 {
				return nil, err
			}
			s.log.Warnf("第 %d 块测验生成失败: %v", i+1, err)
			continue
		}

		var questions []model.QuizQuestion
		if err := unmarshalJSONArray(content, &questions); err != nil {
			if len(chunks) == 1 {
				return nil, fmt.Errorf("解析测验失败: %w", err)
			}
			s.log.Warnf("第 %d 块测验解析失败: %v", i+1, err)
			continue
		}
		all = append(all, questions...)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("未生成任何测验题")
	}
	if len(all) > 5 {
		all = all[:5]
	}
	return all, nil
}

// generateMindmap 生成思维导图
func (s *AIService) generateMindmap(ctx context.Context, text string) (map[string]model.MindMapNode, error) {
	// 超长文本退化为按章节划分的简单导图
	if len(text) > maxChunkSize {
		chunks := (len(text) + maxChunkSize - 1) / maxChunkSize
		mindmap := map[string]model.MindMapNode{
			"root": {ID: "root", Label: "Document Overview"},
		}
		root := mindmap["root"]
		for i := 0; i < chunks; i++ {
			id := fmt.Sprintf("section-%d", i+1)
			mindmap[id] = model.MindMapNode{ID: id, Label: fmt.Sprintf("Section %d", i+1), Children: []string{}}
			root.Children = append(root.Children, id)
		}
		mindmap["root"] = root
		return mindmap, nil
	}

	prompt := "Based on the following document, create a hierarchical mind map showing the main concepts and their relationships. Format as a JSON object where each node has an 'id', 'label', and 'children' array of other node IDs. The root node should have id 'root'.\n\n" + text
	content, err := s.chat(ctx, prompt, 1500)
	if err != nil {
		return nil, err
	}

	var mindmap map[string]model.MindMapNode
	if err := unmarshalJSONObject(content, &mindmap); err != nil {
		return nil, fmt.Errorf("解析思维导图失败: %w", err)
	}
	if _, ok := mindmap["root"]; !ok {
		return nil, fmt.Errorf("思维导图缺少 root 节点")
	}
	return mindmap, nil
}

// unmarshalJSONArray 从模型输出中提取并解析 JSON 数组
func unmarshalJSONArray(content string, v interface{}) error {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return fmt.Errorf("输出中未找到 JSON 数组")
	}
	return json.Unmarshal([]byte(content[start:end+1]), v)
}

// unmarshalJSONObject 从模型输出中提取并解析 JSON 对象
func unmarshalJSONObject(content string, v interface{}) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("输出中未找到 JSON 对象")
	}
	return json.Unmarshal([]byte(content[start:end+1]), v)
}
