package pipeline

import "github.com/nurpath/nurpath/internal/model"

type abstention struct {
	answer string
	notice string
}

var safetyAbstention = map[model.Language]abstention{
	model.LangEnglish: {
		answer: "I cannot provide a binding ruling for this case. Please consult a qualified scholar and use the cited material for study only.",
		notice: "Educational guidance only. Escalate to a qualified scholar.",
	},
	model.LangArabic: {
		answer: "لا يمكنني إصدار فتوى مُلزِمة لهذه الحالة. يرجى الرجوع إلى عالم مؤهل، واستخدام الأدلة هنا للتعلّم فقط.",
		notice: "إرشاد تعليمي فقط. يلزم الرجوع إلى عالم مؤهل.",
	},
}

var validationAbstention = map[model.Language]abstention{
	model.LangEnglish: {
		answer: "Unable to provide a reliable answer right now. Please review the evidence or refine the question.",
		notice: "Response was switched to abstention because validation thresholds were not met.",
	},
	model.LangArabic: {
		answer: "تعذر تقديم إجابة موثوقة الآن. راجع الأدلة أو أعد صياغة السؤال بدقة أكبر.",
		notice: "تم تفعيل وضع التحفظ لأن التحقق من الاستناد لم يستوفِ العتبة المطلوبة.",
	},
}

func abstentionFor(reason model.DecisionReason, lang model.Language) abstention {
	table := validationAbstention
	if reason == model.ReasonAbstainedBySafety {
		table = safetyAbstention
	}
	if msg, ok := table[lang]; ok {
		return msg
	}
	return table[model.LangEnglish]
}
