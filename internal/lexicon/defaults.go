package lexicon

// Default returns the built-in tables. Each call returns a fresh copy.
//
// Some scene lists repeat a keyword (尴尬, 恐惧). Repeats count once per
// occurrence when scoring and are kept as shipped.
func Default() *Tables {
	return &Tables{
		Scenes: []Category{
			{Name: "拒绝", Keywords: []string{"算了", "改天", "不方便", "下次", "以后", "不用了", "不用", "不必", "不需要", "不用麻烦"}},
			{Name: "冲突", Keywords: []string{"烦", "讨厌", "又这样", "够了", "别说了", "闭嘴", "走开", "滚", "烦死了"}},
			{Name: "暗示", Keywords: []string{"可能", "也许", "或者", "考虑", "看看", "再说", "到时候", "如果"}},
			{Name: "情绪", Keywords: []string{"开心", "高兴", "难过", "伤心", "生气", "愤怒", "失望", "担心", "害怕"}},
			{Name: "请求", Keywords: []string{"可以", "能不能", "请", "帮", "麻烦", "希望", "想要", "需要"}},
			{Name: "请求帮助", Keywords: []string{"帮帮我", "能帮我", "可以帮我", "需要帮助", "求助", "帮忙"}},
			{Name: "提出改进建议", Keywords: []string{"建议", "可以改进", "最好", "应该", "不如", "试试"}},
			{Name: "失望", Keywords: []string{"失望", "没想到", "以为", "可惜", "遗憾"}},
			{Name: "无聊", Keywords: []string{"无聊", "没意思", "没劲", "好无聊", "真无聊"}},
			{Name: "高兴", Keywords: []string{"高兴", "开心", "快乐", "愉快", "兴奋", "太棒了"}},
			{Name: "尴尬", Keywords: []string{"尴尬", "不好意思", "难为情", "不好意思", "有点尴尬"}},
			{Name: "恐惧", Keywords: []string{"害怕", "恐惧", "担心", "担心", "不安", "害怕"}},
			{Name: "惊讶", Keywords: []string{"惊讶", "没想到", "居然", "竟然", "天哪", "哇"}},
			{Name: "回应感谢", Keywords: []string{"谢谢", "感谢", "多谢", "太感谢了", "谢谢你"}},
			{Name: "安慰", Keywords: []string{"别难过", "没关系", "会好的", "别担心", "我理解"}},
			{Name: "抱怨", Keywords: []string{"抱怨", "真烦", "太糟糕", "受不了", "真麻烦"}},
			{Name: "赞美", Keywords: []string{"好", "棒", "优秀", "厉害", "不错", "很好", "太好了", "真棒"}},
			{Name: "批评", Keywords: []string{"不好", "差", "糟糕", "不行", "不对", "错了", "不应该"}},
		},
		Emotions: []Category{
			{Name: "开心", Keywords: []string{"开心", "高兴", "快乐", "愉快", "兴奋", "太棒了", "太好了", "真棒"}},
			{Name: "难过", Keywords: []string{"难过", "伤心", "悲伤", "沮丧", "失落", "想哭"}},
			{Name: "生气", Keywords: []string{"生气", "愤怒", "恼火", "烦躁", "讨厌", "烦死了"}},
			{Name: "焦虑", Keywords: []string{"焦虑", "担心", "不安", "紧张", "害怕", "恐惧"}},
			{Name: "平静", Keywords: []string{"平静", "放松", "舒服", "安心", "稳定"}},
			{Name: "疲惫", Keywords: []string{"累", "疲惫", "疲倦", "困", "没精神"}},
			{Name: "失望", Keywords: []string{"失望", "绝望", "无奈", "遗憾"}},
			{Name: "尴尬", Keywords: []string{"尴尬", "不好意思", "难为情"}},
			{Name: "惊讶", Keywords: []string{"惊讶", "震惊", "没想到", "居然"}},
			{Name: "无聊", Keywords: []string{"无聊", "没意思", "空虚"}},
		},
		Positive: []string{"好", "棒", "开心", "高兴", "喜欢", "爱", "满意", "成功", "优秀", "美好", "快乐", "幸福"},
		Negative: []string{"坏", "差", "难过", "伤心", "讨厌", "恨", "失望", "失败", "糟糕", "痛苦", "悲伤", "愤怒"},
		Extreme:  []string{"绝望", "想死", "不想活了", "崩溃", "受不了", "自杀", "自残"},
		StopWords: []string{
			"的", "了", "在", "是", "我", "有", "和", "就", "不", "人", "都", "一", "一个",
			"上", "也", "很", "到", "说", "要", "去", "你", "会", "着", "没有", "看", "好", "自己", "这",
		},
	}
}
