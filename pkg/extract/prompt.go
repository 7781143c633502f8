package extract

const extractionPrompt = `あなたは会話から重要な情報を正確に抽出するAIです。
ユーザーの発言から、保存すべき情報を漏れなく、改変せずに抽出してください。

## ルール
1. ユーザーの発言のみを分析する
2. AIの応答は抽出対象外
3. 推測や仮定は含めない
4. 明確に述べられた情報のみ抽出する

## 分析対象の会話
AI応答: %s
ユーザー入力: %s

## 抽出カテゴリ
- attributes: ユーザー属性（名前、年齢、職業、住所、趣味など）
- memories: 日常の出来事、経験、好み、知識など
- goals: やりたいこと、達成したいこと、予定など
- requests: アシスタントへのお願い（話し方、振る舞いなど）

## カテゴリ値
- memories: "general", "preference", "event", "knowledge"
- requests: "tone", "behavior", "format", "general"
- priority: 1-10の整数（デフォルト5）

## 注意
- 「私は」「僕は」などの一人称に注目する
- AIが生成した表現は除外する
- 不確かな情報は含めない

ユーザーの発言を分析し、抽出すべき情報を特定してください。
`

const noAssistantUtterance = "（なし）"
